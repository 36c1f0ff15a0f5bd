package health

type Input struct{}

type Output struct {
	Body Response
}

type Response struct {
	Status  string `json:"status" example:"OK"`
	Service string `json:"service" example:"nutrilog-devserver"`
	Uptime  string `json:"uptime" example:"5m30s"`
}
