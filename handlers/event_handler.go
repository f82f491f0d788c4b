package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"campus-events-api/middleware"
	"campus-events-api/models"
	"campus-events-api/repositories"
	"campus-events-api/services"
)

const maxBannerUploadSize = 10 << 20 // 10MB

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// List supports ?category=, ?status=, ?organizer_id=, ?search=, ?limit=, ?offset=.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListEventsFilter{Limit: 20}
	q := r.URL.Query()

	if category := q.Get("category"); category != "" {
		filter.Category = &category
	}
	if rawStatus := q.Get("status"); rawStatus != "" {
		status := models.EventStatus(rawStatus)
		switch status {
		case models.EventStatusUpcoming, models.EventStatusCompleted, models.EventStatusCanceled:
			filter.Status = &status
		default:
			badRequestResponse(w, r, errors.New("invalid status filter"))
			return
		}
	}
	if rawID := q.Get("organizer_id"); rawID != "" {
		organizerID, err := strconv.Atoi(rawID)
		if err != nil || organizerID <= 0 {
			badRequestResponse(w, r, errors.New("invalid organizer_id filter"))
			return
		}
		filter.OrganizerID = &organizerID
	}
	if search := q.Get("search"); search != "" {
		filter.Search = &search
	}
	if rawLimit := q.Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 || limit > 100 {
			badRequestResponse(w, r, errors.New("limit must be between 1 and 100"))
			return
		}
		filter.Limit = limit
	}
	if rawOffset := q.Get("offset"); rawOffset != "" {
		offset, err := strconv.Atoi(rawOffset)
		if err != nil || offset < 0 {
			badRequestResponse(w, r, errors.New("invalid offset"))
			return
		}
		filter.Offset = offset
	}

	events, err := h.eventService.ListEvents(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.GetEvent(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreateEventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, role, eventID, err := callerAndEventID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateEventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.UpdateEvent(r.Context(), userID, role, eventID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, role, eventID, err := callerAndEventID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.eventService.CancelEvent(r.Context(), userID, role, eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "event canceled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, role, eventID, err := callerAndEventID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.eventService.DeleteEvent(r.Context(), userID, role, eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadBanner accepts a multipart form with a "banner" file field.
func (h *EventHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	userID, role, eventID, err := callerAndEventID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxBannerUploadSize); err != nil {
		badRequestResponse(w, r, errors.New("could not parse multipart form, is the file too large?"))
		return
	}
	file, header, err := r.FormFile("banner")
	if err != nil {
		badRequestResponse(w, r, errors.New("banner file field is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	event, err := h.eventService.UploadBanner(r.Context(), userID, role, eventID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListRegistered lists the caller's registered events.
func (h *EventHandler) ListRegistered(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	events, err := h.eventService.ListRegisteredEvents(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func callerAndEventID(r *http.Request) (int, models.UserRole, int, error) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return 0, "", 0, err
	}
	role, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		return 0, "", 0, err
	}
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		return 0, "", 0, err
	}
	return userID, role, eventID, nil
}
