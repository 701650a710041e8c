package httphandler

type (
	Descriptor struct {
		Label string `json:"label"`
		Icon  string `json:"icon"`
	}

	TransactionRequest struct {
		Account string `json:"account"`
	}

	TransactionResponse struct {
		Transaction string `json:"transaction"`
		Message     string `json:"message"`
	}

	TransferLinkResponse struct {
		URL       string `json:"url"`
		Reference string `json:"reference"`
		Amount    string `json:"amount"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)
