package main

//go:generate swag init -g cmd/riskdesk/main.go -o docs

// @title           RiskDesk API
// @version         0.1.0
// @description     Account risk bookkeeping: circuit breaker, kill switch, daily reset and lockout monitors.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
