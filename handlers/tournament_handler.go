package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/services"
)

type TournamentHandler struct {
	tournamentService  services.TournamentService
	progression        services.ProgressionService
	participantService services.ParticipantService
	matchService       services.MatchService
}

func NewTournamentHandler(
	ts services.TournamentService,
	progression services.ProgressionService,
	participants services.ParticipantService,
	matches services.MatchService,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService:  ts,
		progression:        progression,
		participantService: participants,
		matchService:       matches,
	}
}

// CreateHandler обрабатывает POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	messageResponse(w, r, http.StatusCreated, "tournament created", jsonResponse{"tournament": tournament})
}

// UpdateHandler обрабатывает PUT /tournaments/{tournamentID}; только для черновиков.
func (h *TournamentHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournament(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	messageResponse(w, r, http.StatusOK, "tournament updated", jsonResponse{"tournament": tournament})
}

// GetByIDHandler обрабатывает GET /tournaments/{tournamentID}: турнир с группами, таблицами и матчами.
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournamentOverview(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter services.ListTournamentsFilter
	query := r.URL.Query()

	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
		filter.Limit = limit
	} else {
		filter.Limit = 20
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
		filter.Offset = offset
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /tournaments/{tournamentID}
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.tournamentService.DeleteTournament(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	messageResponse(w, r, http.StatusOK, "tournament deleted", nil)
}

// BracketHandler обрабатывает GET /tournaments/{tournamentID}/bracket
func (h *TournamentHandler) BracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	bracket, err := h.tournamentService.GetBracket(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMatchesHandler обрабатывает GET /tournaments/{tournamentID}/matches
func (h *TournamentHandler) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matches, err := h.matchService.ListTournamentMatches(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// --- Запись игроков ---

func (h *TournamentHandler) ListParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	players, err := h.participantService.ListParticipants(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EnrollHandler обрабатывает POST /tournaments/{tournamentID}/players с телом {"player_id": N}
func (h *TournamentHandler) EnrollHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		PlayerID int `json:"player_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.PlayerID <= 0 {
		badRequestResponse(w, r, errors.New("player_id is required"))
		return
	}

	tp, err := h.participantService.EnrollPlayer(r.Context(), id, input.PlayerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	messageResponse(w, r, http.StatusCreated, "player enrolled", jsonResponse{"participant": tp})
}

// RemovePlayerHandler обрабатывает DELETE /tournaments/{tournamentID}/players/{playerID}
func (h *TournamentHandler) RemovePlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.participantService.RemovePlayer(r.Context(), id, playerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	messageResponse(w, r, http.StatusOK, "player removed from tournament", nil)
}

// --- Ход турнира ---

// runStep выполняет шаг движка без тела запроса и отвечает сообщением.
func (h *TournamentHandler) runStep(w http.ResponseWriter, r *http.Request, message string, step func(id int) error) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := step(id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	messageResponse(w, r, http.StatusOK, message, jsonResponse{"tournament_id": id})
}

func (h *TournamentHandler) PartitionGroupsHandler(w http.ResponseWriter, r *http.Request) {
	h.runStep(w, r, "groups created", func(id int) error {
		return h.progression.PartitionGroups(r.Context(), id)
	})
}

func (h *TournamentHandler) GenerateGroupMatchesHandler(w http.ResponseWriter, r *http.Request) {
	h.runStep(w, r, "group matches generated", func(id int) error {
		return h.progression.GenerateGroupMatches(r.Context(), id)
	})
}

func (h *TournamentHandler) RecomputeStandingsHandler(w http.ResponseWriter, r *http.Request) {
	h.runStep(w, r, "standings recomputed", func(id int) error {
		return h.progression.RecomputeStandings(r.Context(), id)
	})
}

// SelectQualifiersHandler: пустое тело, тело без player_ids или пустой список означает автоматический отбор.
func (h *TournamentHandler) SelectQualifiersHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PlayerIDs []int `json:"player_ids"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}
	if len(input.PlayerIDs) == 0 {
		input.PlayerIDs = nil
	}
	h.runStep(w, r, "knockout qualifiers selected", func(id int) error {
		return h.progression.SelectQualifiers(r.Context(), id, input.PlayerIDs)
	})
}

func (h *TournamentHandler) GenerateBracketHandler(w http.ResponseWriter, r *http.Request) {
	h.runStep(w, r, "knockout bracket generated", func(id int) error {
		return h.progression.GenerateBracket(r.Context(), id)
	})
}

func (h *TournamentHandler) RecoverAdvancementsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	n, err := h.progression.RecoverAdvancements(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	messageResponse(w, r, http.StatusOK, "advancements recovered", jsonResponse{"recovered": n})
}

func (h *TournamentHandler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	h.runStep(w, r, "tournament completed", func(id int) error {
		return h.progression.CompleteTournament(r.Context(), id)
	})
}
