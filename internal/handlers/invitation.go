package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairup/internal/models"
	"github.com/HammerMeetNail/pairup/internal/services"
)

type InvitationHandler struct {
	invitationService services.InvitationServiceInterface
}

func NewInvitationHandler(invitationService services.InvitationServiceInterface) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

type CreateInvitationRequest struct {
	MatchID      string     `json:"match_id"`
	Message      string     `json:"message"`
	ProposedDate *time.Time `json:"proposed_date,omitempty"`
}

type UpdateInvitationStatusRequest struct {
	Status string `json:"status"`
}

type InvitationListResponse struct {
	Invitations []models.Invitation `json:"invitations"`
}

func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CreateInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	invitation, err := h.invitationService.Create(r.Context(), models.CreateInvitationParams{
		MatchID:      matchID,
		ActorID:      user.ID,
		Message:      req.Message,
		ProposedDate: req.ProposedDate,
	})
	if errors.Is(err, services.ErrMessageTooLong) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, services.ErrMatchNotFound) {
		writeError(w, http.StatusNotFound, "Match not found")
		return
	}
	if errors.Is(err, services.ErrNotAParticipant) {
		writeError(w, http.StatusForbidden, "Not a participant in this match")
		return
	}
	if errors.Is(err, services.ErrMatchInactive) {
		writeError(w, http.StatusConflict, "Match is no longer active")
		return
	}
	if err != nil {
		writeInternalError(w, r, "creating invitation", err)
		return
	}

	writeJSON(w, http.StatusCreated, invitation)
}

func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	invitations, err := h.invitationService.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, r, "listing invitations", err)
		return
	}

	writeJSON(w, http.StatusOK, InvitationListResponse{Invitations: invitations})
}

func (h *InvitationHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	invitationID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invitation ID")
		return
	}

	invitation, err := h.invitationService.GetByID(r.Context(), invitationID)
	if errors.Is(err, services.ErrInvitationNotFound) {
		writeError(w, http.StatusNotFound, "Invitation not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "getting invitation", err)
		return
	}
	if !invitation.HasUser(user.ID) {
		writeError(w, http.StatusNotFound, "Invitation not found")
		return
	}

	writeJSON(w, http.StatusOK, invitation)
}

func (h *InvitationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	invitationID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invitation ID")
		return
	}

	var req UpdateInvitationStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := models.ParseInvitationStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	invitation, err := h.invitationService.Transition(r.Context(), invitationID, user.ID, status)
	if errors.Is(err, services.ErrInvitationNotFound) {
		writeError(w, http.StatusNotFound, "Invitation not found")
		return
	}
	if errors.Is(err, services.ErrWrongParticipant) {
		writeError(w, http.StatusForbidden, "Only the other participant can make this change")
		return
	}
	if errors.Is(err, services.ErrNotAParticipant) {
		writeError(w, http.StatusForbidden, "Not a participant in this invitation")
		return
	}
	if errors.Is(err, services.ErrInvalidTransition) {
		writeError(w, http.StatusConflict, "Invitation can no longer be changed to this status")
		return
	}
	if err != nil {
		writeInternalError(w, r, "updating invitation status", err)
		return
	}

	writeJSON(w, http.StatusOK, invitation)
}
