package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"campus-events-api/models"
	"campus-events-api/realtime"
	"campus-events-api/repositories"
	"campus-events-api/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxManager runs the callback directly; the fakes below are not
// transactional, which is fine for exercising the service logic.
type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) add(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	} else if user.ID >= r.nextID {
		r.nextID = user.ID + 1
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if u.IDNumber == user.IDNumber {
			return repositories.ErrUserIDNumberConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.EmailConfirmationToken != nil && *u.EmailConfirmationToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByPasswordResetToken(ctx context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) ConfirmEmail(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.EmailConfirmed = true
	user.EmailConfirmationToken = nil
	return nil
}

func (r *fakeUserRepo) SetPasswordResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.PasswordResetToken = &token
	user.PasswordResetExpiresAt = &expiresAt
	return nil
}

func (r *fakeUserRepo) SetRequestOrganizer(ctx context.Context, id int, requested bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.RequestOrganizer = requested
	return nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id int, role models.UserRole, requestOrganizer bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.Role = role
	user.RequestOrganizer = requestOrganizer
	return nil
}

func (r *fakeUserRepo) AdjustCounters(ctx context.Context, exec repositories.SQLExecutor, id int, registered, upcoming, completed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.EventsRegistered += registered
	user.UpcomingEvents += upcoming
	user.CompletedEvents += completed
	return nil
}

func (r *fakeUserRepo) ListOrganizerRequests(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0)
	for _, u := range r.users {
		if u.RequestOrganizer {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0)
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[int]*models.Event
	nextID int

	// attendeeCounts is kept in sync by the registration fake via the
	// test setup, or seeded directly for capacity tests.
	attendeeCounts map[int]int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[int]*models.Event), nextID: 1, attendeeCounts: make(map[int]int)}
}

func (r *fakeEventRepo) add(event *models.Event) *models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == 0 {
		event.ID = r.nextID
		r.nextID++
	} else if event.ID >= r.nextID {
		r.nextID = event.ID + 1
	}
	r.events[event.ID] = event
	return event
}

func (r *fakeEventRepo) Create(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.nextID
	r.nextID++
	event.CreatedAt = time.Now()
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) get(id int) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id int) (*models.Event, error) {
	return r.get(id)
}

func (r *fakeEventRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Event, error) {
	return r.get(id)
}

func (r *fakeEventRepo) List(ctx context.Context, filter repositories.ListEventsFilter) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, 0)
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out, nil
}

func (r *fakeEventRepo) ListByAttendee(ctx context.Context, userID int) ([]models.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) ListEndedBefore(ctx context.Context, exec repositories.SQLExecutor, cutoff time.Time) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Event, 0)
	for _, e := range r.events {
		if e.Status == models.EventStatusUpcoming && e.StartsAt.Before(cutoff) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return repositories.ErrEventNotFound
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.EventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	event.Status = status
	return nil
}

func (r *fakeEventRepo) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	event.BannerKey = bannerKey
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return repositories.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) CountAttendees(ctx context.Context, exec repositories.SQLExecutor, eventID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attendeeCounts[eventID], nil
}

type fakeRegistrationRepo struct {
	mu     sync.Mutex
	regs   map[int]*models.Registration
	nextID int

	events *fakeEventRepo
}

func newFakeRegistrationRepo(events *fakeEventRepo) *fakeRegistrationRepo {
	return &fakeRegistrationRepo{regs: make(map[int]*models.Registration), nextID: 1, events: events}
}

func (r *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.regs {
		if existing.EventID == reg.EventID && existing.UserID == reg.UserID {
			return repositories.ErrRegistrationConflict
		}
	}
	if err := reg.EncodeResponses(); err != nil {
		return err
	}
	reg.ID = r.nextID
	r.nextID++
	reg.CreatedAt = time.Now()
	r.regs[reg.ID] = reg
	if r.events != nil {
		r.events.mu.Lock()
		r.events.attendeeCounts[reg.EventID]++
		r.events.mu.Unlock()
	}
	return nil
}

func (r *fakeRegistrationRepo) FindByUserAndEvent(ctx context.Context, exec repositories.SQLExecutor, userID, eventID int) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.regs {
		if reg.UserID == userID && reg.EventID == eventID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByEvent(ctx context.Context, eventID int) ([]*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Registration, 0)
	for _, reg := range r.regs {
		if reg.EventID == eventID {
			copied := *reg
			copied.User = &models.User{ID: reg.UserID}
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRegistrationRepo) ListUserIDsByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0)
	for _, reg := range r.regs {
		if reg.EventID == eventID {
			ids = append(ids, reg.UserID)
		}
	}
	return ids, nil
}

func (r *fakeRegistrationRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	delete(r.regs, id)
	if r.events != nil {
		r.events.mu.Lock()
		r.events.attendeeCounts[reg.EventID]--
		r.events.mu.Unlock()
	}
	return nil
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	teams  map[int]*models.Team
	nextID int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team), nextID: 1}
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := team.EncodeMembers(); err != nil {
		return err
	}
	team.ID = r.nextID
	r.nextID++
	team.CreatedAt = time.Now()
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) ListByEvent(ctx context.Context, eventID int) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Team, 0)
	for _, team := range r.teams {
		if team.EventID == eventID {
			copied := *team
			copied.Leader = &models.User{ID: team.LeaderID}
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.Notification
	nextID        int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.nextID
	r.nextID++
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) Delete(ctx context.Context, id, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

type fakePusher struct {
	mu       sync.Mutex
	messages map[int][]realtime.Message
}

func newFakePusher() *fakePusher {
	return &fakePusher{messages: make(map[int][]realtime.Message)}
}

func (p *fakePusher) SendToUser(userID int, msg realtime.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[userID] = append(p.messages[userID], msg)
}

func (p *fakePusher) sentTo(userID int) []realtime.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[userID]
}

type fakeUploader struct {
	mu       sync.Mutex
	uploaded map[string]string // key -> content type
	deleted  []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: make(map[string]string)}
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploaded[key] = contentType
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.uploaded, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}
