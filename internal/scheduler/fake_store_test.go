package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"curequeue-server/internal/models"
	"curequeue-server/internal/notify"
	"curequeue-server/internal/realtime"

	"gorm.io/gorm"
)

// memStore is an in-memory Store. Transactions are serialized the way the
// sequence row lock serializes them in MySQL.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users  map[string]models.User
	appts  map[string]models.Appointment
	seq    map[string]int
	nextID int

	createErr error
}

func newMemStore(users ...models.User) *memStore {
	s := &memStore{
		users: make(map[string]models.User),
		appts: make(map[string]models.Appointment),
		seq:   make(map[string]int),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *memStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (s *memStore) NextToken(ctx context.Context, doctorID, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := doctorID + "|" + date
	s.seq[key]++
	return s.seq[key], nil
}

func (s *memStore) CountActive(ctx context.Context, doctorID, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Status.IsActive() {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if appt.ID == "" {
		s.nextID++
		appt.ID = fmt.Sprintf("appt-%d", s.nextID)
	}
	s.appts[appt.ID] = *appt
	return nil
}

func (s *memStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (s *memStore) UpdateIfStatus(ctx context.Context, id string, from []models.AppointmentStatus, updates map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, st := range from {
		if a.Status == st {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	for k, v := range updates {
		switch k {
		case "status":
			a.Status = v.(models.AppointmentStatus)
		case "cancelled_by":
			a.CancelledBy = v.(models.Role)
		case "waiting_time":
			a.WaitingTime = v.(int)
		}
	}
	s.appts[id] = a
	return true, nil
}

func (s *memStore) ListQueue(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Appointment
	for _, a := range s.appts {
		if a.DoctorID == doctorID && a.Date == date {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Dispatch(n notify.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

func (r *recordingNotifier) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.QueueEvent
}

func (r *recordingPublisher) Publish(ev realtime.QueueEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) all() []realtime.QueueEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.QueueEvent(nil), r.events...)
}
