package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/signup"
)

type SignupHandler struct {
	checker *signup.Checker
}

func NewSignupHandler(ch *signup.Checker) *SignupHandler {
	return &SignupHandler{checker: ch}
}

type signupCheckReq struct {
	Email string `json:"email"`
}

// Check is the pre-create hook: 200 lets account creation proceed.
func (h *SignupHandler) Check(c *gin.Context) {
	var req signupCheckReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.checker.Check(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"allowed": true})
}
