package response

type CurrenciesResponse struct {
	Currencies []string `json:"currencies"`
	Count      int      `json:"count"`
}

func NewCurrenciesResponse(currencies []string) *CurrenciesResponse {
	return &CurrenciesResponse{
		Currencies: currencies,
		Count:      len(currencies),
	}
}
