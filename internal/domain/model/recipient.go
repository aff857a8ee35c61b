package model

// RecipientEntry is the persisted part of a RecipientRecord.
type RecipientEntry struct {
	Timestamp int64  `json:"timestamp"`
	Amount    string `json:"amount"`
}

// RecipientSet maps a recipient address to its last transfer for one (network, token).
type RecipientSet map[string]RecipientEntry

type RecipientRecord struct {
	RecipientAddress string `json:"recipientAddress"`
	Timestamp        int64  `json:"timestamp"`
	Amount           string `json:"amount"`
}
