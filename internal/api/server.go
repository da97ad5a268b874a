// Package api exposes the room over HTTP/JSON. Player operations carry the
// acting account in the request; admin operations carry a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/engine"
	"github.com/cardroom/engine/internal/room"
)

type Server struct {
	room *room.Room
	log  zerolog.Logger
}

func NewServer(r *room.Room, log zerolog.Logger) *Server {
	return &Server{room: r, log: log}
}

type createTableRequest struct {
	ID     string             `json:"id,omitempty"`
	Config domain.TableConfig `json:"config"`
}

type joinRequest struct {
	Account string       `json:"account"`
	BuyIn   domain.Chips `json:"buy_in"`
}

type accountRequest struct {
	Account string `json:"account"`
}

type actRequest struct {
	Account string            `json:"account"`
	Kind    domain.ActionKind `json:"kind"`
	Amount  domain.Chips      `json:"amount,omitempty"`
}

type settlementResponse struct {
	Table      *domain.Table      `json:"table"`
	Settlement *engine.Settlement `json:"settlement,omitempty"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "tables":
		s.handleTables(w, r)
	case len(parts) == 2 && parts[0] == "tables" && parts[1] != "":
		s.handleTable(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "tables" && parts[1] != "" && parts[2] != "":
		s.handleTableAction(w, r, parts[1], parts[2])
	case len(parts) == 3 && parts[0] == "hands" && parts[1] != "" && parts[2] == "actions":
		s.handleHandActions(w, r, parts[1])
	default:
		writeError(w, http.StatusNotFound, "route not found")
	}
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createTableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		table, err := s.room.CreateTable(req.ID, req.Config)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, table)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.room.ListTables())
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request, tableID string) {
	switch r.Method {
	case http.MethodGet:
		table, err := s.room.GetTable(tableID, r.URL.Query().Get("account"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, table)
	case http.MethodDelete:
		if err := s.room.CloseTable(bearerToken(r), tableID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleTableAction(w http.ResponseWriter, r *http.Request, tableID, action string) {
	if r.Method == http.MethodGet {
		switch action {
		case "seat":
			seat, err := s.room.GetSeat(tableID, r.URL.Query().Get("account"))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, seat)
		case "community":
			cards, err := s.room.GetCommunity(tableID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, cards)
		case "hands":
			hands, err := s.room.ListHands(tableID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, hands)
		default:
			writeError(w, http.StatusNotFound, "route not found")
		}
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch action {
	case "join":
		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.room.Join(tableID, req.Account, req.BuyIn); err != nil {
			writeDomainError(w, err)
			return
		}
		s.respondWithTable(w, tableID, req.Account)
	case "leave":
		var req accountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.room.Leave(tableID, req.Account); err != nil {
			writeDomainError(w, err)
			return
		}
		s.respondWithTable(w, tableID, "")
	case "sitout":
		s.handleSeatToggle(w, r, tableID, s.room.SitOut)
	case "sitin":
		s.handleSeatToggle(w, r, tableID, s.room.SitIn)
	case "act":
		var req actRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		domainAction, err := domain.NewAction(req.Kind, req.Amount)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		settlement, err := s.room.Act(tableID, req.Account, domainAction)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		s.respondWithSettlement(w, tableID, req.Account, settlement)
	case "advance":
		settlement, err := s.room.Advance(tableID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		s.respondWithSettlement(w, tableID, "", settlement)
	case "pause":
		if err := s.room.Pause(bearerToken(r), tableID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "unpause":
		if err := s.room.Unpause(bearerToken(r), tableID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusNotFound, "route not found")
	}
}

func (s *Server) handleSeatToggle(w http.ResponseWriter, r *http.Request, tableID string, toggle func(tableID, account string) error) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := toggle(tableID, req.Account); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondWithTable(w, tableID, req.Account)
}

func (s *Server) handleHandActions(w http.ResponseWriter, r *http.Request, handID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actions, err := s.room.ListActions(handID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) respondWithTable(w http.ResponseWriter, tableID, viewer string) {
	table, err := s.room.GetTable(tableID, viewer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) respondWithSettlement(w http.ResponseWriter, tableID, viewer string, settlement *engine.Settlement) {
	table, err := s.room.GetTable(tableID, viewer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse{Table: table, Settlement: settlement})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrUnknownTable), errors.Is(err, domain.ErrPlayerNotAtTable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, room.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, room.ErrTablePaused), errors.Is(err, domain.ErrTableFull), errors.Is(err, domain.ErrNotYourTurn):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidConfiguration), errors.Is(err, domain.ErrInvalidBuyIn),
		errors.Is(err, domain.ErrInvalidAction), errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
