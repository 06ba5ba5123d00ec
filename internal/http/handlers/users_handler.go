package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/middleware"
	"github.com/trailborn/tours-api/internal/http/response"
	"github.com/trailborn/tours-api/internal/repo/postgres"
)

type UsersHandler struct {
	Users postgres.UserRepository
}

func NewUsersHandler(users postgres.UserRepository) *UsersHandler {
	return &UsersHandler{Users: users}
}

func (h *UsersHandler) me(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, middleware.CurrentUser(r))
}

// updateMe edits name, email and photo only. Password traffic goes
// through /updateMyPassword so the session stamp stays correct.
func (h *UsersHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if _, ok := raw["password"]; ok {
		response.BadRequest(w, "this route is not for password updates, please use /updateMyPassword")
		return
	}
	if _, ok := raw["passwordConfirm"]; ok {
		response.BadRequest(w, "this route is not for password updates, please use /updateMyPassword")
		return
	}

	var in domain.UpdateMeRequest
	if err := decodeFields(raw, &in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		response.Error(w, err)
		return
	}

	u := middleware.CurrentUser(r)
	updated, err := h.Users.UpdateProfile(r.Context(), u.ID, &in)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, updated)
}

func (h *UsersHandler) deleteMe(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r)
	if err := h.Users.Deactivate(r.Context(), u.ID); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// createUser exists so the admin collection route is complete; accounts
// are only ever created through signup.
func (h *UsersHandler) createUser(w http.ResponseWriter, _ *http.Request) {
	response.WriteError(w, http.StatusBadRequest,
		"this route is not defined, please use /signup instead", response.CodeInvalidInput)
}

func decodeFields(raw map[string]json.RawMessage, dst any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, dst)
}
