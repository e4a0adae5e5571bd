package via

// Wire shapes for the Via order API. The upstream omits fields freely and
// individual venues can fail inside an otherwise successful response, so
// everything downstream of the status code is optional.

type createOrderResponse struct {
	OrderID string `json:"orderId"`
}

type updateOrderRequest struct {
	FromTokenAddress string `json:"fromTokenAddress"`
	ToTokenAddress   string `json:"toTokenAddress"`
	Amount           string `json:"amount,omitempty"`
	ChainID          int    `json:"chainId"`
}

type quotesResponse struct {
	Status string       `json:"status"` // "pending" or "ready"
	Quotes []venueQuote `json:"quotes"`
	Error  *apiError    `json:"error,omitempty"`
}

type venueQuote struct {
	Venue            string `json:"venue"`
	AmountOut        string `json:"amountOut,omitempty"`
	SimulationFailed bool   `json:"simulationFailed,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// errOrderCompleted is the dedicated expiry signal: the upstream closed the
// order unilaterally. Distinct from generic failure, it triggers session
// rotation instead of consuming a retry attempt.
const errOrderCompleted = "ORDER_COMPLETED"

const statusReady = "ready"
