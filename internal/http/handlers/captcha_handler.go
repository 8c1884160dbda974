package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/captcha"
)

type CaptchaHandler struct {
	verifier *captcha.Verifier
}

func NewCaptchaHandler(v *captcha.Verifier) *CaptchaHandler {
	return &CaptchaHandler{verifier: v}
}

type verifyReq struct {
	Token  string `json:"token"`
	Action string `json:"action"`
}

func (h *CaptchaHandler) Verify(c *gin.Context) {
	var req verifyReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.verifier.Verify(c.Request.Context(), req.Token, req.Action)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
