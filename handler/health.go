package handler

import (
	"context"

	"github.com/kataras/iris/v12"
)

//HealthHandler reports ok as long as the store answers
type HealthHandler struct {
	Check func(ctx context.Context) error
}

func (hh *HealthHandler) Ok(ctx iris.Context) {

	if hh.Check != nil {
		if err := hh.Check(ctx.Request().Context()); err != nil {
			ctx.StatusCode(iris.StatusServiceUnavailable)
			ctx.JSON(map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	ctx.JSON(map[string]string{"status": "ok"})
}
