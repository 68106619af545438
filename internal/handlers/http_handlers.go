package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"raffle/internal/clock"
	"raffle/internal/models"
	"raffle/internal/services"
	"raffle/internal/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/holiman/uint256"
)

// History is the read side of the winner store.
type History interface {
	Fetch(round uint64) (models.WinnerRecord, error)
	FetchAll() ([]models.WinnerRecord, error)
}

// HTTPHandler holds the dependencies for the HTTP handlers, like the raffle service.
type HTTPHandler struct {
	service     *services.RaffleService
	history     History
	clock       clock.Clock
	oracleToken string
}

// NewHTTPHandler creates a new HTTPHandler. history may be nil.
func NewHTTPHandler(service *services.RaffleService, history History, clk clock.Clock) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		history: history,
		clock:   clk,
	}
}

// EnableOracleCallback exposes POST /oracle/fulfill to callers presenting
// token as a bearer token. Without it the route is not registered.
func (h *HTTPHandler) EnableOracleCallback(token string) error {
	if token == "" {
		return errors.New("oracle callback token is empty")
	}
	h.oracleToken = token
	return nil
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/raffle", h.GetRaffle)
	router.POST("/raffle/enter", h.EnterRaffle)
	router.GET("/raffle/players/:index", h.GetPlayer)
	router.GET("/raffle/winner", h.GetRecentWinner)
	router.GET("/upkeep", h.CheckUpkeep)
	router.POST("/upkeep", h.PerformUpkeep)
	if h.oracleToken != "" {
		router.POST("/oracle/fulfill", h.requireOracleToken, h.FulfillRandomWords)
	}
	router.GET("/winners", h.ListWinners)
	router.GET("/winners/:round", h.GetWinner)
}

// abort writes err with the status matching its kind.
func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInsufficientFee),
		errors.Is(err, services.ErrNoRandomWords):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrIndexOutOfRange),
		errors.Is(err, services.ErrUnknownRequest),
		errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrRoundNotOpen),
		errors.Is(err, services.ErrRequestAlreadyPending),
		errors.Is(err, services.ErrUpkeepNotNeeded):
		status = http.StatusConflict
	case errors.Is(err, services.ErrPayoutFailed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// requireOracleToken rejects callers without the oracle bearer token.
func (h *HTTPHandler) requireOracleToken(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.oracleToken)) != 1 {
		logger.Warningf("rejected oracle callback from %s", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid oracle token"})
		return
	}
	c.Next()
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// GetRaffle handles the request for the current raffle snapshot.
func (h *HTTPHandler) GetRaffle(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Snapshot())
}

type enterRequest struct {
	Participant string `json:"participant" binding:"required"`
	Value       string `json:"value" binding:"required"`
}

// EnterRaffle handles an entry paying value wei for participant.
func (h *HTTPHandler) EnterRaffle(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !common.IsHexAddress(req.Participant) {
		badRequest(c, "invalid participant address")
		return
	}
	value, err := uint256.FromDecimal(req.Value)
	if err != nil {
		badRequest(c, "invalid value: "+err.Error())
		return
	}

	participant := common.HexToAddress(req.Participant)
	if err := h.service.Enter(c.Request.Context(), participant, value); err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participant":     participant,
		"numberOfPlayers": h.service.NumberOfPlayers(),
	})
}

// GetPlayer handles the request for the participant holding an entry index.
func (h *HTTPHandler) GetPlayer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid index")
		return
	}

	player, err := h.service.Player(index)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "player": player})
}

// GetRecentWinner handles the request for the last resolved round.
func (h *HTTPHandler) GetRecentWinner(c *gin.Context) {
	winner := h.service.RecentWinner()
	if winner == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no winner yet"})
		return
	}
	c.JSON(http.StatusOK, winner)
}

// CheckUpkeep handles the automation read: is closing the round due now.
func (h *HTTPHandler) CheckUpkeep(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"upkeepNeeded": h.service.CheckUpkeep(h.clock.Now())})
}

// PerformUpkeep handles the automation commit: close the round and request
// randomness.
func (h *HTTPHandler) PerformUpkeep(c *gin.Context) {
	id, err := h.service.PerformUpkeep(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestId": id})
}

type fulfillRequest struct {
	RequestID   models.RequestID `json:"requestId"`
	RandomWords []string         `json:"randomWords" binding:"required"`
}

// FulfillRandomWords handles the oracle callback carrying the random words
// for a request.
func (h *HTTPHandler) FulfillRandomWords(c *gin.Context) {
	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	words := make([]*uint256.Int, 0, len(req.RandomWords))
	for _, w := range req.RandomWords {
		v, err := uint256.FromDecimal(w)
		if err != nil {
			badRequest(c, "invalid random word: "+err.Error())
			return
		}
		words = append(words, v)
	}

	rec, err := h.service.ResolveWords(c.Request.Context(), req.RequestID, words)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListWinners handles the request for the stored winner history.
func (h *HTTPHandler) ListWinners(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, []models.WinnerRecord{})
		return
	}
	list, err := h.history.FetchAll()
	if err != nil {
		abort(c, err)
		return
	}
	if list == nil {
		list = []models.WinnerRecord{}
	}
	c.JSON(http.StatusOK, list)
}

// GetWinner handles the request for the winner of one round.
func (h *HTTPHandler) GetWinner(c *gin.Context) {
	round, err := strconv.ParseUint(c.Param("round"), 10, 64)
	if err != nil {
		badRequest(c, "invalid round")
		return
	}
	if h.history == nil {
		abort(c, storage.ErrNotFound)
		return
	}

	rec, err := h.history.Fetch(round)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
