package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the uniform envelope for dashboard API replies
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Msg: msg, Data: data})
}

func Fail(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 1, Msg: msg, Data: data})
}

func FailWithStatus(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: 1, Msg: msg})
}
