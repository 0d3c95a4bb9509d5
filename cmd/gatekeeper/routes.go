package main

import (
	"github.com/labstack/echo/v4"

	"github.com/dmitrymomot/gatekeeper/core/auth"
	"github.com/dmitrymomot/gatekeeper/core/health"
	"github.com/dmitrymomot/gatekeeper/core/oauth"
	"github.com/dmitrymomot/gatekeeper/middleware"
)

type routes struct {
	auth     *auth.Service
	fetchers map[string]oauth.ProfileFetcher
	accounts auth.Accounts
	limit    middleware.Middleware
}

func (rt routes) register(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/health/live", echo.WrapHandler(health.Liveness()))
	e.GET("/health/ready", ready)

	a := e.Group("/auth", echo.WrapMiddleware(middleware.NoStore()))
	a.GET("/oauth/begin", echo.WrapHandler(rt.auth.OAuthBeginHandler()))
	a.GET("/oauth/callback", echo.WrapHandler(rt.auth.OAuthCallbackHandler(rt.fetchers, rt.accounts)))
	a.GET("/exchange", echo.WrapHandler(rt.auth.ExchangeHandler()))
	a.POST("/logout", echo.WrapHandler(rt.auth.LogoutHandler()))

	stepUp := a.Group("", echo.WrapMiddleware(rt.limit))
	stepUp.POST("/passkey/start", echo.WrapHandler(rt.auth.PasskeyStartHandler()))
	stepUp.POST("/passkey/finish", echo.WrapHandler(rt.auth.PasskeyFinishHandler()))
	stepUp.POST("/code/start", echo.WrapHandler(rt.auth.EmailCodeStartHandler()))
	stepUp.POST("/code/verify", echo.WrapHandler(rt.auth.EmailCodeVerifyHandler()))

	me := a.Group("/me", echo.WrapMiddleware(rt.auth.RequireSession))
	me.GET("", echo.WrapHandler(rt.auth.SessionHandler()))
	me.GET("/devices", echo.WrapHandler(rt.auth.DevicesHandler()))
}
