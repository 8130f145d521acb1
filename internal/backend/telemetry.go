package backend

// SiteTelemetry is the nested site view returned by the telemetry endpoint.
type SiteTelemetry struct {
	Site       SiteIdentity `json:"site"`
	Electrical Electrical   `json:"electrical"`
	Charges    Charges      `json:"charges"`
	Status     SiteStatus   `json:"status"`
}

// SiteIdentity names the site and its consumer.
type SiteIdentity struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MeterNumber  string `json:"meter_number"`
	ConsumerName string `json:"consumer_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
}

// Electrical holds instantaneous readings.
type Electrical struct {
	VoltageV     float64 `json:"voltage"`
	CurrentA     float64 `json:"current"`
	PowerKW      float64 `json:"power_kw"`
	EnergyKWh    float64 `json:"energy_kwh"`
	FrequencyHz  float64 `json:"frequency"`
	PowerFactor  float64 `json:"power_factor"`
	LoadLimitKW  float64 `json:"load_limit_kw"`
	LastReadTime string  `json:"last_read_time"`
}

// Charges holds the prepaid balance view.
type Charges struct {
	Balance        float64 `json:"balance"`
	LastRecharge   float64 `json:"last_recharge"`
	FixedCharge    float64 `json:"fixed_charge"`
	EnergyCharge   float64 `json:"energy_charge"`
	RatePerKWh     float64 `json:"rate_per_kwh"`
	LastRechargeAt string  `json:"last_recharge_at"`
}

// SiteStatus holds relay and fault flags.
type SiteStatus struct {
	RelayOn    bool `json:"relay_on"`
	Fault      bool `json:"fault"`
	Tamper     bool `json:"tamper"`
	LowBalance bool `json:"low_balance"`
	Overload   bool `json:"overload"`
}
