package handlers

import (
	"net/http"

	"campus-events-api/services"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(registrationService *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// Register signs the caller up for an event. The body is optional for
// one-click events; team events expect "members" and form events "responses".
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, _, eventID, err := callerAndEventID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.EventRegistrationInput
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	outcome, err := h.registrationService.Register(r.Context(), userID, eventID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if outcome.ExternalFormURL != nil {
		response := jsonResponse{"external_form_url": *outcome.ExternalFormURL}
		if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	response := jsonResponse{"registration": outcome.Registration}
	if outcome.Team != nil {
		response["team"] = outcome.Team
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	userID, _, eventID, err := callerAndEventID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.registrationService.Unregister(r.Context(), userID, eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetOwn returns the caller's registration for an event.
func (h *RegistrationHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	userID, _, eventID, err := callerAndEventID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.GetRegistration(r.Context(), userID, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListAttendees is restricted to the event's organizer and admins.
func (h *RegistrationHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	userID, role, eventID, err := callerAndEventID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	regs, err := h.registrationService.ListEventAttendees(r.Context(), userID, role, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
