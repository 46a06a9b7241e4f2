package recommend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/freightrec/core/evaluate"
	"github.com/kilianp07/freightrec/core/recommend"
)

// statusFor maps a failed recommendation to an HTTP status. Insufficient
// evidence is a normal outcome and keeps 200.
func statusFor(k recommend.Kind) int {
	switch k {
	case "", recommend.KindInsufficientEvidence:
		return http.StatusOK
	case recommend.KindInputConversion:
		return http.StatusBadRequest
	case recommend.KindDataUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "policy": s.svc.Policy()})
}

func (s *Server) recommendFreightPrice(c *gin.Context) {
	var req recommend.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, recommend.Response{
			Error:     fmt.Sprintf("invalid request body: %v", err),
			ErrorKind: recommend.KindInputConversion,
			Details:   map[string]any{},
			RequestID: c.GetString(requestIDKey),
		})
		return
	}
	resp := s.svc.Recommend(requestContext(c), req)
	c.JSON(statusFor(resp.ErrorKind), resp)
}

func (s *Server) feedback(c *gin.Context) {
	var req recommend.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid request body: %w", err)))
		return
	}
	if !req.OriginalRecommendation.IsSet() {
		c.JSON(http.StatusBadRequest, errorResponse(errors.New("originalRecommendation is required")))
		return
	}
	err := s.svc.Feedback(requestContext(c), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "feedback recorded"})
	case errors.Is(err, recommend.ErrInputConversion):
		c.JSON(http.StatusBadRequest, errorResponse(err))
	case errors.Is(err, recommend.ErrFeedbackUnsupported):
		c.JSON(http.StatusNotImplemented, errorResponse(err))
	default:
		s.log.Errorf("save feedback: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
	}
}

func (s *Server) state(c *gin.Context) {
	st := s.svc.State(requestContext(c))
	c.JSON(http.StatusOK, gin.H{"success": true, "state": st})
}

// testPredictions replays the dataset. Query parameters: numScenarios and
// acceptableError (percent).
func (s *Server) testPredictions(c *gin.Context) {
	var opts evaluate.Options
	if v := c.Query("numScenarios"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("numScenarios: %w", err)))
			return
		}
		opts.Scenarios = n
	}
	if v := c.Query("acceptableError"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("acceptableError: %w", err)))
			return
		}
		opts.TolerancePct = f
	}
	rep, err := s.svc.Evaluate(requestContext(c), opts)
	if err != nil {
		c.JSON(statusFor(recommend.KindOf(err)), errorResponse(err))
		return
	}
	msg := fmt.Sprintf("Tests finished: %.1f%% of predictions within %.0f%%.", rep.AccuracyRate, rep.TolerancePct)
	if !rep.Acceptable {
		msg += fmt.Sprintf(" Below the %.0f%% target.", evaluate.AcceptableAccuracyPct)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"acceptable": rep.Acceptable,
		"message":    msg,
		"results":    rep,
	})
}

func (s *Server) trainModel(c *gin.Context) {
	if s.trainer == nil {
		c.JSON(http.StatusNotImplemented, errorResponse(errors.New("training is not enabled")))
		return
	}
	fit, err := s.trainer.Train(c.Request.Context())
	if err != nil {
		s.log.Errorf("train model: %v", err)
		c.JSON(statusFor(recommend.KindOf(err)), errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "model trained", "metrics": fit.Metrics()})
}
