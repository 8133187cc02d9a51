package wasapi

const (
	Name     = "wasapi"
	Priority = 200
)
