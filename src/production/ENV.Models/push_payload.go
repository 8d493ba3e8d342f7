package envmodels

// PushPayload is the loosely-typed body of an inbound sensor push.
// Firmware in the field sends temperature and humidity either as JSON
// numbers or as numeric strings, so both fields stay untyped until the
// validator coerces them. CreatedAt is an optional ISO-8601 timestamp;
// when absent or unparseable the server substitutes ingestion time.
type PushPayload struct {
	Temperature interface{} `json:"temperature"`
	Humidity    interface{} `json:"humidity"`
	CreatedAt   string      `json:"created_at"`
	Source      string      `json:"source"`
}
