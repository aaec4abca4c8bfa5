package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailroom-bot/mailroom-backend/internal/pkg/relayerr"
)

// RespondServiceError maps relay errors onto HTTP statuses. Lookups that
// miss are 404, lifecycle conflicts 409, upstream delivery failures 502,
// and everything else 500.
func RespondServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch relayerr.KindOf(err) {
	case relayerr.KindNotFound:
		status = http.StatusNotFound
		code = "not_found"
	case relayerr.KindInvalidState:
		status = http.StatusConflict
	case relayerr.KindTransport:
		status = http.StatusBadGateway
	case relayerr.KindIntegrity:
		status = http.StatusInternalServerError
	}

	if rc := relayerr.CodeOf(err); rc != "" {
		code = rc
	}
	RespondError(c, status, code, err)
}
