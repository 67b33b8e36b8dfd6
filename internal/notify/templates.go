package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Kind names a notification template.
type Kind string

const (
	KindAppointmentConfirmed   Kind = "appointment_confirmed"
	KindCancelledByDoctor      Kind = "appointment_cancelled_by_doctor"
	KindCancelledByPatient     Kind = "appointment_cancelled_by_patient"
	KindPatientCancelledNotice Kind = "appointment_cancelled_notice"
	KindWaitingTimeUpdated     Kind = "waiting_time_updated"
	KindHomeVisitAccepted      Kind = "home_visit_accepted"
	KindHomeVisitRejected      Kind = "home_visit_rejected"
	KindHomeVisitCompleted     Kind = "home_visit_completed"
)

// AppointmentDetails fills the appointment templates.
type AppointmentDetails struct {
	PatientName string
	DoctorName  string
	Date        string
	Time        string
	Token       int
	WaitingTime int
	Status      string
}

// HomeVisitDetails fills the home visit templates.
type HomeVisitDetails struct {
	PatientName string
	DoctorName  string
	Date        string
	Address     string
}

type emailTemplate struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

const footer = `<p>Thank you for using CureQueue.</p><p>Best regards,<br/>CureQueue Team</p>`

var templates = map[Kind]emailTemplate{
	KindAppointmentConfirmed: newTemplate("Appointment Confirmation",
		`<p>Dear {{.PatientName}},</p>
<p>Your appointment has been successfully booked.</p>
<p><strong>Doctor:</strong> Dr. {{.DoctorName}}</p>
<p><strong>Date:</strong> {{.Date}} at {{.Time}}</p>
<p><strong>Token:</strong> {{.Token}}</p>
<p><strong>Estimated Waiting Time:</strong> {{.WaitingTime}} minutes</p>`+footer,
		`Dear {{.PatientName}}, your appointment with Dr. {{.DoctorName}} on {{.Date}} at {{.Time}} is booked. Token {{.Token}}, estimated wait {{.WaitingTime}} minutes.`),
	KindCancelledByDoctor: newTemplate("Your Appointment Has Been Cancelled",
		`<p>Hello {{.PatientName}},</p>
<p>We regret to inform you that your appointment with Dr. {{.DoctorName}} on {{.Date}} at {{.Time}} has been cancelled by the doctor.</p>
<p>If needed, please book a new appointment at your convenience.</p>`+footer,
		`Hello {{.PatientName}}, your appointment with Dr. {{.DoctorName}} on {{.Date}} at {{.Time}} has been cancelled by the doctor.`),
	KindCancelledByPatient: newTemplate("Your Appointment Has Been Successfully Cancelled",
		`<p>Hello {{.PatientName}},</p>
<p>This is to confirm that your appointment with Dr. {{.DoctorName}} on {{.Date}} at {{.Time}} has been cancelled as per your request.</p>
<p>You can book a new appointment anytime through CureQueue.</p>`+footer,
		`Hello {{.PatientName}}, your appointment with Dr. {{.DoctorName}} on {{.Date}} at {{.Time}} has been cancelled as you requested.`),
	KindPatientCancelledNotice: newTemplate("Appointment Cancelled by Patient",
		`<p>Dear Dr. {{.DoctorName}},</p>
<p>{{.PatientName}} has cancelled their appointment on {{.Date}} at {{.Time}} (token {{.Token}}).</p>
<p>The queue has been updated.</p>`+footer,
		`Dear Dr. {{.DoctorName}}, {{.PatientName}} cancelled their appointment on {{.Date}} at {{.Time}} (token {{.Token}}).`),
	KindWaitingTimeUpdated: newTemplate("Your Appointment Has Been Updated",
		`<p>Dear {{.PatientName}},</p>
<p>Your appointment with Dr. {{.DoctorName}} has been updated.</p>
<p><strong>Status:</strong> {{.Status}}</p>
<p><strong>Estimated Wait Time:</strong> {{.WaitingTime}} minutes</p>`+footer,
		`Dear {{.PatientName}}, the estimated wait for your appointment with Dr. {{.DoctorName}} is now {{.WaitingTime}} minutes.`),
	KindHomeVisitAccepted: newTemplate("Your Home Visit Request Has Been Accepted",
		`<h2>Home Visit Request Accepted</h2>
<p>Hello <strong>{{.PatientName}}</strong>,</p>
<p>Dr. <strong>{{.DoctorName}}</strong> has accepted your home visit request.</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Address:</strong> {{.Address}}</p>`+footer,
		`Hello {{.PatientName}}, Dr. {{.DoctorName}} accepted your home visit on {{.Date}} at {{.Address}}.`),
	KindHomeVisitRejected: newTemplate("Your Home Visit Request Has Been Declined",
		`<h2>Home Visit Request Declined</h2>
<p>Hello <strong>{{.PatientName}}</strong>,</p>
<p>We regret to inform you that Dr. <strong>{{.DoctorName}}</strong> is unavailable and has declined your home visit request.</p>
<p><strong>Requested Date:</strong> {{.Date}}</p>
<p><strong>Address:</strong> {{.Address}}</p>`+footer,
		`Hello {{.PatientName}}, Dr. {{.DoctorName}} declined your home visit request for {{.Date}} at {{.Address}}.`),
	KindHomeVisitCompleted: newTemplate("Your Home Visit Appointment is Completed",
		`<h2>Home Visit Appointment Completed</h2>
<p>Hello <strong>{{.PatientName}}</strong>,</p>
<p>Your home visit appointment with Dr. <strong>{{.DoctorName}}</strong> has been marked as completed.</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Address:</strong> {{.Address}}</p>`+footer,
		`Hello {{.PatientName}}, your home visit with Dr. {{.DoctorName}} on {{.Date}} is completed.`),
}

func newTemplate(subject, html, text string) emailTemplate {
	return emailTemplate{
		subject: subject,
		html:    htmltemplate.Must(htmltemplate.New(subject).Parse(html)),
		text:    texttemplate.Must(texttemplate.New(subject).Parse(text)),
	}
}

// Render builds the email for n.
func Render(n Notification) (EmailMessage, error) {
	tmpl, ok := templates[n.Kind]
	if !ok {
		return EmailMessage{}, fmt.Errorf("notify: unknown template %q", n.Kind)
	}

	var html, text bytes.Buffer
	if err := tmpl.html.Execute(&html, n.Data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render %s: %w", n.Kind, err)
	}
	if err := tmpl.text.Execute(&text, n.Data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render %s: %w", n.Kind, err)
	}

	return EmailMessage{
		To:      n.To,
		ToName:  n.ToName,
		Subject: tmpl.subject,
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}
