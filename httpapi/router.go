// Package httpapi serves the qsim API over HTTP with the canonical
// JSON encoding. The transport adds nothing to the contract: every
// response body is the structured result the in-process API returns.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/theapemachine/qsim"
)

func NewRouter(api *qsim.API) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", Health(api))

	v1 := r.Group("/v1")
	{
		v1.POST("/circuits", CreateCircuit(api))
		v1.POST("/circuits/:circuitId/gates", ApplyGates(api))
		v1.POST("/circuits/:circuitId/measure", Measure(api))
		v1.GET("/circuits/:circuitId/state", GetState(api))
		v1.DELETE("/circuits/:circuitId", ReleaseCircuit(api))

		v1.POST("/search/problems", CreateSearchProblem(api))
		v1.POST("/search/problems/:problemId/run", RunSearch(api))
		v1.GET("/search/problems/:problemId/candidates", GetRankedCandidates(api))
	}
	return r
}
