package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
	"github.com/theapemachine/qsim"
)

// statusCode maps a structured result onto HTTP: domain failures stay
// 200 with success:false (the result is the contract), except
// unavailability, which is a 503 so load balancers see it too.
func statusCode(s qsim.Status) int {
	if !s.Success && s.ErrorKind == qsim.UnavailableError {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

type createCircuitRequest struct {
	CircuitID string `json:"circuit_id" binding:"required"`
	NumQubits int    `json:"num_qubits"`
}

func CreateCircuit(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCircuitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res := api.CreateCircuit(req.CircuitID, req.NumQubits)
		c.JSON(statusCode(res.Status), res)
	}
}

type applyGatesRequest struct {
	Gates []qsim.GateSpec `json:"gates" binding:"required"`
}

func ApplyGates(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req applyGatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res := api.ApplyGates(c.Param("circuitId"), req.Gates)
		c.JSON(statusCode(res.Status), res)
	}
}

func Measure(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := api.Measure(c.Param("circuitId"))
		c.JSON(statusCode(res.Status), res)
	}
}

func GetState(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		topN, err := strconv.Atoi(c.DefaultQuery("top_n", "8"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_n must be an integer"})
			return
		}
		res := api.GetState(c.Param("circuitId"), topN)
		c.JSON(statusCode(res.Status), res)
	}
}

func ReleaseCircuit(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := api.ReleaseCircuit(c.Param("circuitId"))
		c.JSON(statusCode(res.Status), res)
	}
}

type createSearchProblemRequest struct {
	ProblemID string    `json:"problem_id"`
	Objective string    `json:"objective" binding:"required"`
	Seeds     []float64 `json:"seeds"`
}

func CreateSearchProblem(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSearchProblemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ProblemID == "" {
			req.ProblemID = uuid.NewString()
		}
		p, ok := buildProblem(req.Objective, req.ProblemID, req.Seeds)
		if !ok {
			errnie.Info("unknown search objective %q requested", req.Objective)
			c.JSON(http.StatusOK, qsim.CreateSearchProblemResult{
				Status: qsim.Status{
					Success:   false,
					ErrorKind: qsim.InvalidProblemError,
					Message:   "unknown objective " + req.Objective,
				},
			})
			return
		}
		res := api.CreateSearchProblem(p)
		c.JSON(statusCode(res.Status), res)
	}
}

type runSearchRequest struct {
	Iterations int `json:"iterations"`
}

func RunSearch(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res := api.RunSearch(c.Request.Context(), c.Param("problemId"), req.Iterations)
		c.JSON(statusCode(res.Status), res)
	}
}

func GetRankedCandidates(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := api.GetRankedCandidates(c.Param("problemId"))
		c.JSON(statusCode(res.Status), res)
	}
}

func Health(api *qsim.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := api.Metrics().Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"circuits_live": m.CircuitsLive,
			"bytes_in_use":  m.BytesInUse,
			"gates_applied": m.GatesApplied,
			"search_runs":   m.SearchRuns,
		})
	}
}
