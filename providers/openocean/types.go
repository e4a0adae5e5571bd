package openocean

// routesResponse is the wire shape of the dex connections endpoint. Fields
// the aggregator does not send are simply absent, so everything is optional.
type routesResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data struct {
		Dexes []dexEntry `json:"dexes"`
	} `json:"data"`
}

type dexEntry struct {
	DexName string `json:"dexName"`
	// Simulation is "ok" or "failed"; older API versions omit it entirely,
	// which counts as ok.
	Simulation string `json:"simulation,omitempty"`
}

// quoteResponse is the wire shape of the swap quote endpoint.
type quoteResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data struct {
		InAmount  string `json:"inAmount"`
		OutAmount string `json:"outAmount"`
	} `json:"data"`
}

// codeOK is the in-body success code; anything else on a 200 response means
// the provider explicitly has no route or liquidity for the pair.
const codeOK = 200
