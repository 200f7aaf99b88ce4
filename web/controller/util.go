package controller

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/entity"

	"github.com/gin-gonic/gin"
)

// getRemoteIp extracts the real IP address from the request headers or remote address.
func getRemoteIp(c *gin.Context) string {
	value := c.GetHeader("X-Real-IP")
	if value != "" {
		return value
	}
	value = c.GetHeader("X-Forwarded-For")
	if value != "" {
		ips := strings.Split(value, ",")
		return strings.TrimSpace(ips[0])
	}
	addr := c.Request.RemoteAddr
	ip, _, _ := net.SplitHostPort(addr)
	return ip
}

func jsonMsg(c *gin.Context, msg string, err error) {
	jsonMsgObj(c, msg, nil, err)
}

func jsonObj(c *gin.Context, obj any, err error) {
	jsonMsgObj(c, "", obj, err)
}

// jsonMsgObj writes the standard envelope. Errors go through respondError.
func jsonMsgObj(c *gin.Context, msg string, obj any, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.Msg{Success: true, Msg: msg, Obj: obj})
}

func pureJsonMsg(c *gin.Context, statusCode int, success bool, msg string) {
	c.JSON(statusCode, entity.Msg{
		Success: success,
		Msg:     msg,
	})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrToken):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a failed envelope. Server side failures are logged with their
// cause and reach the client only as a generic message.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	} else {
		logger.Debugf("%s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}
	m := entity.Msg{Success: false, Msg: common.Message(err)}
	if details := common.Details(err); len(details) > 0 {
		m.Obj = details
	}
	c.AbortWithStatusJSON(status, m)
}

// finish ends a successful form post: the envelope for scripts, a 303 to location otherwise.
func finish(c *gin.Context, location, msg string, obj any) {
	if wantsJSON(c) {
		jsonMsgObj(c, msg, obj, nil)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}

func isAjax(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// wantsJSON reports whether the caller is a script rather than a form submission.
func wantsJSON(c *gin.Context) bool {
	return isAjax(c) ||
		strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.ContentType(), "application/json")
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
