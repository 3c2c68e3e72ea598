package bot

import (
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
)

func TestIsAuthFailure(t *testing.T) {
	gatewayClose := &websocket.CloseError{Code: 4004, Text: "Authentication failed."}
	assert.Assert(t, IsAuthFailure(gatewayClose))
	assert.Assert(t, IsAuthFailure(errors.Wrap(gatewayClose, "open session")))

	unauthorized := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusUnauthorized}}
	assert.Assert(t, IsAuthFailure(unauthorized))

	assert.Assert(t, !IsAuthFailure(&websocket.CloseError{Code: websocket.CloseGoingAway}))
	assert.Assert(t, !IsAuthFailure(&discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadGateway}}))
	assert.Assert(t, !IsAuthFailure(errors.New("dial tcp: i/o timeout")))
}
