package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"campus-events-api/models"
)

type eventFixture struct {
	svc           *EventService
	users         *fakeUserRepo
	events        *fakeEventRepo
	registrations *fakeRegistrationRepo
	notifRepo     *fakeNotificationRepo
	uploader      *fakeUploader
}

func newEventFixture() *eventFixture {
	users := newFakeUserRepo()
	events := newFakeEventRepo()
	regs := newFakeRegistrationRepo(events)
	notifRepo := newFakeNotificationRepo()
	uploader := newFakeUploader()
	notifications := NewNotificationService(notifRepo, newFakePusher(), testLogger())

	svc := NewEventService(fakeTxManager{}, events, users, regs, notifications, nil, uploader, testLogger())
	return &eventFixture{
		svc:           svc,
		users:         users,
		events:        events,
		registrations: regs,
		notifRepo:     notifRepo,
		uploader:      uploader,
	}
}

func validCreateInput() CreateEventInput {
	return CreateEventInput{
		Title:            "Hackathon",
		Location:         "Lab 3",
		Category:         "technical",
		StartsAt:         time.Now().Add(72 * time.Hour),
		RegistrationType: models.RegistrationOneClick,
		Capacity:         100,
	}
}

func TestCreateEvent(t *testing.T) {
	f := newEventFixture()
	organizer := f.users.add(&models.User{Name: "Org", Email: "org@x", Role: models.RoleOrganizer})

	event, err := f.svc.CreateEvent(context.Background(), organizer.ID, validCreateInput())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if event.ID == 0 {
		t.Fatal("expected a persisted event")
	}
	if event.Status != models.EventStatusUpcoming {
		t.Errorf("Status = %s, want upcoming", event.Status)
	}
	if event.OrganizerID != organizer.ID {
		t.Errorf("OrganizerID = %d, want %d", event.OrganizerID, organizer.ID)
	}
}

func TestCreateEventValidation(t *testing.T) {
	f := newEventFixture()
	organizer := f.users.add(&models.User{Name: "Org", Email: "org@x", Role: models.RoleOrganizer})

	cases := []struct {
		name    string
		mutate  func(*CreateEventInput)
		wantErr error
	}{
		{"missing title", func(in *CreateEventInput) { in.Title = "" }, ErrEventTitleRequired},
		{"negative capacity", func(in *CreateEventInput) { in.Capacity = -1 }, ErrEventInvalidCapacity},
		{"deadline after start", func(in *CreateEventInput) {
			d := in.StartsAt.Add(time.Hour)
			in.RegistrationDeadline = &d
		}, ErrEventInvalidDeadline},
		{"google form without url", func(in *CreateEventInput) {
			in.RegistrationType = models.RegistrationGoogleForm
		}, ErrEventFormURLRequired},
		{"form without questions", func(in *CreateEventInput) {
			in.RegistrationType = models.RegistrationForm
		}, ErrEventQuestionsInvalid},
		{"question with unknown type", func(in *CreateEventInput) {
			in.RegistrationType = models.RegistrationForm
			in.Questions = []models.FormQuestion{{Label: "Q", Type: "dropdown"}}
		}, ErrEventQuestionsInvalid},
		{"inverted team range", func(in *CreateEventInput) {
			in.IsTeamEvent = true
			in.TeamConfig = &models.TeamConfig{MinMembers: 5, MaxMembers: 2}
		}, ErrEventInvalidTeamRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput()
			tc.mutate(&input)
			if _, err := f.svc.CreateEvent(context.Background(), organizer.ID, input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestUpdateEventOwnership(t *testing.T) {
	f := newEventFixture()
	organizer := f.users.add(&models.User{Name: "Org", Email: "org@x", Role: models.RoleOrganizer})
	other := f.users.add(&models.User{Name: "Other", Email: "other@x", Role: models.RoleOrganizer})

	event, err := f.svc.CreateEvent(context.Background(), organizer.ID, validCreateInput())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	input := validCreateInput()
	input.Title = "Hackathon v2"

	if _, err := f.svc.UpdateEvent(context.Background(), other.ID, models.RoleOrganizer, event.ID, input); !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("other organizer err = %v, want ErrForbiddenOperation", err)
	}
	updated, err := f.svc.UpdateEvent(context.Background(), other.ID, models.RoleAdmin, event.ID, input)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Title != "Hackathon v2" {
		t.Errorf("Title = %q, want %q", updated.Title, "Hackathon v2")
	}
}

func TestCancelEventNotifiesAttendees(t *testing.T) {
	f := newEventFixture()
	organizer := f.users.add(&models.User{Name: "Org", Email: "org@x", Role: models.RoleOrganizer})
	attendee := f.users.add(&models.User{Name: "A", Email: "a@x", Role: models.RoleGeneral})

	event, err := f.svc.CreateEvent(context.Background(), organizer.ID, validCreateInput())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if err := f.registrations.Create(context.Background(), nil, &models.Registration{
		EventID: event.ID, UserID: attendee.ID,
	}); err != nil {
		t.Fatalf("seed registration: %v", err)
	}

	if err := f.svc.CancelEvent(context.Background(), organizer.ID, models.RoleOrganizer, event.ID); err != nil {
		t.Fatalf("CancelEvent: %v", err)
	}

	stored, err := f.events.GetByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.EventStatusCanceled {
		t.Errorf("Status = %s, want canceled", stored.Status)
	}

	notifs, _ := f.notifRepo.ListByUser(context.Background(), attendee.ID, false, 10, 0)
	if len(notifs) != 1 || notifs[0].Type != models.NotificationEventCanceled {
		t.Fatalf("notifications = %+v, want one event_canceled", notifs)
	}

	// Canceling again is rejected.
	if err := f.svc.CancelEvent(context.Background(), organizer.ID, models.RoleOrganizer, event.ID); !errors.Is(err, ErrEventNotOpen) {
		t.Fatalf("second cancel err = %v, want ErrEventNotOpen", err)
	}
}

func TestUploadBannerReplacesOld(t *testing.T) {
	f := newEventFixture()
	organizer := f.users.add(&models.User{Name: "Org", Email: "org@x", Role: models.RoleOrganizer})
	event, err := f.svc.CreateEvent(context.Background(), organizer.ID, validCreateInput())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	first, err := f.svc.UploadBanner(context.Background(), organizer.ID, models.RoleOrganizer, event.ID, "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("first UploadBanner: %v", err)
	}
	if first.BannerKey == nil || !strings.HasSuffix(*first.BannerKey, ".png") {
		t.Fatalf("BannerKey = %v, want a .png key", first.BannerKey)
	}
	firstKey := *first.BannerKey

	second, err := f.svc.UploadBanner(context.Background(), organizer.ID, models.RoleOrganizer, event.ID, "image/jpeg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("second UploadBanner: %v", err)
	}
	if *second.BannerKey == firstKey {
		t.Error("second upload should produce a fresh key")
	}
	if len(f.uploader.deleted) != 1 || f.uploader.deleted[0] != firstKey {
		t.Errorf("deleted = %v, want the first key removed", f.uploader.deleted)
	}
	if second.BannerURL == nil {
		t.Error("BannerURL should be populated after upload")
	}
}

func TestUploadBannerRejectsUnknownType(t *testing.T) {
	f := newEventFixture()
	organizer := f.users.add(&models.User{Name: "Org", Email: "org@x", Role: models.RoleOrganizer})
	event, err := f.svc.CreateEvent(context.Background(), organizer.ID, validCreateInput())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if _, err := f.svc.UploadBanner(context.Background(), organizer.ID, models.RoleOrganizer, event.ID, "application/pdf", strings.NewReader("%PDF")); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}
}

func TestAutoCompleteFinishedEvents(t *testing.T) {
	f := newEventFixture()
	attendee := f.users.add(&models.User{
		Name: "A", Email: "a@x", Role: models.RoleGeneral,
		EventsRegistered: 1, UpcomingEvents: 1,
	})
	finished := f.events.add(&models.Event{
		Title:    "Yesterday's workshop",
		StartsAt: time.Now().Add(-24 * time.Hour),
		Status:   models.EventStatusUpcoming,
	})
	future := f.events.add(&models.Event{
		Title:    "Next week",
		StartsAt: time.Now().Add(7 * 24 * time.Hour),
		Status:   models.EventStatusUpcoming,
	})
	if err := f.registrations.Create(context.Background(), nil, &models.Registration{
		EventID: finished.ID, UserID: attendee.ID,
	}); err != nil {
		t.Fatalf("seed registration: %v", err)
	}

	if err := f.svc.AutoCompleteFinishedEvents(context.Background()); err != nil {
		t.Fatalf("AutoCompleteFinishedEvents: %v", err)
	}

	done, _ := f.events.GetByID(context.Background(), finished.ID)
	if done.Status != models.EventStatusCompleted {
		t.Errorf("finished event status = %s, want completed", done.Status)
	}
	still, _ := f.events.GetByID(context.Background(), future.ID)
	if still.Status != models.EventStatusUpcoming {
		t.Errorf("future event status = %s, want upcoming", still.Status)
	}

	user, _ := f.users.GetByID(context.Background(), attendee.ID)
	if user.UpcomingEvents != 0 || user.CompletedEvents != 1 {
		t.Errorf("counters = (upcoming %d, completed %d), want (0, 1)", user.UpcomingEvents, user.CompletedEvents)
	}
}

func TestDeleteEventRemovesBanner(t *testing.T) {
	f := newEventFixture()
	organizer := f.users.add(&models.User{Name: "Org", Email: "org@x", Role: models.RoleOrganizer})
	event, err := f.svc.CreateEvent(context.Background(), organizer.ID, validCreateInput())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	uploaded, err := f.svc.UploadBanner(context.Background(), organizer.ID, models.RoleOrganizer, event.ID, "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("UploadBanner: %v", err)
	}
	key := *uploaded.BannerKey

	if err := f.svc.DeleteEvent(context.Background(), organizer.ID, models.RoleOrganizer, event.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := f.svc.GetEvent(context.Background(), event.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("GetEvent err = %v, want ErrEventNotFound", err)
	}
	found := false
	for _, d := range f.uploader.deleted {
		if d == key {
			found = true
		}
	}
	if !found {
		t.Errorf("banner %s should be deleted from storage", key)
	}
}
