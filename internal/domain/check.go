package domain

// CheckRecord is one row of the check-run timeseries: the outcome of a
// single wallet check, used for monitoring analytics.
type CheckRecord struct {
	Wallet       string // wallet address checked
	TimestampMs  int64  // when the check started (ms)
	BalanceCount int    // balances returned by the fetch
	EventCount   int    // airdrop events detected
	MaxRiskScore int    // highest risk score among events, 0 if none
	DurationMs   int64  // wall-clock duration of the check
	ErrorKind    string // empty on success, otherwise the network error kind
}
