package types

// Amounts throughout are whole currency units (notes are whole-valued, so
// nothing here needs sub-unit precision).

type InsertCardRequest struct {
	CardNumber string `json:"card_number"`
	MachineID  string `json:"machine_id"`
}

type InsertCardResult struct {
	CardID string `json:"card_id"`
}

type ValidatePINRequest struct {
	CardNumber string `json:"card_number"`
	PIN        string `json:"pin"`
	MachineID  string `json:"machine_id"`
}

type ValidatePINResult struct {
	CardID        string `json:"card_id"`
	AccountID     string `json:"account_id"`
	AccountNumber string `json:"account_number"`
}

type ChangePINRequest struct {
	CardNumber string `json:"card_number"`
	OldPIN     string `json:"old_pin"`
	NewPIN     string `json:"new_pin"`
	MachineID  string `json:"machine_id"`
}

type StartSessionRequest struct {
	CardID    string `json:"card_id"`
	MachineID string `json:"machine_id"`
}

type StartSessionResult struct {
	SessionID string `json:"session_id"`
}

type WithdrawRequest struct {
	CardID    string `json:"card_id"`
	AccountID string `json:"account_id"`
	MachineID string `json:"machine_id"`
	Amount    int64  `json:"amount"`
}

// WithdrawResult carries the note breakdown the machine should dispense.
// The map key is the note value; summed as value*count it equals the
// requested amount exactly.
type WithdrawResult struct {
	Denominations map[int64]int64 `json:"denominations"`
}

type DepositRequest struct {
	CardID    string          `json:"card_id"`
	AccountID string          `json:"account_id"`
	MachineID string          `json:"machine_id"`
	Notes     map[int64]int64 `json:"notes"`
}

type DepositResult struct {
	Amount int64           `json:"amount"`
	Notes  map[int64]int64 `json:"notes"`
}

type TransferRequest struct {
	FromAccountNumber string `json:"from_account_number"`
	ToAccountNumber   string `json:"to_account_number"`
	MachineID         string `json:"machine_id"`
	Amount            int64  `json:"amount"`
}

type TransferResult struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// StatementEntry is one line of a mini statement, most recent first.
type StatementEntry struct {
	Type        TransactionType   `json:"type"`
	Amount      int64             `json:"amount"`
	Date        string            `json:"date"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description,omitempty"`
}
