package api

import (
	"net/http"

	"groupledger/internal/middleware"
	"groupledger/internal/models"
)

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type addMemberRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role,omitempty"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	group, err := s.groups.CreateGroup(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groups.ListGroups(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.GetGroup(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("groupID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, group)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	group, err := s.groups.UpdateGroup(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("groupID"), req.Name, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.DeleteGroup(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("groupID")); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Email == "" {
		badRequest(w, "email is required")
		return
	}

	group, err := s.groups.AddMember(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("groupID"), req.Email, req.Role)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, group)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := s.groups.RemoveMember(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("groupID"), r.PathValue("userID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}
