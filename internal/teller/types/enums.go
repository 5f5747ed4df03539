package types

// CardStatus is the lifecycle state of an ATM card.  The permanently
// blocked states (Blocked, Lost, Closed, Suspended, Expired) can only be
// cleared by back-office action, which is outside this server's surface.
type CardStatus string

const (
	CardActive      CardStatus = "ACTIVE"
	CardTempBlocked CardStatus = "TEMP_BLOCKED"
	CardExpired     CardStatus = "EXPIRED"
	CardBlocked     CardStatus = "BLOCKED"
	CardLost        CardStatus = "LOST"
	CardClosed      CardStatus = "CLOSED"
	CardSuspended   CardStatus = "SUSPENDED"
)

// PermanentlyBlocked reports whether the status can never clear on its own.
// TEMP_BLOCKED is excluded — it expires with the card's lock timestamp.
func (s CardStatus) PermanentlyBlocked() bool {
	switch s {
	case CardBlocked, CardLost, CardClosed, CardSuspended, CardExpired:
		return true
	}
	return false
}

type TransactionType string

const (
	TxWithdrawal TransactionType = "WITHDRAWAL"
	TxDeposit    TransactionType = "DEPOSIT"
	TxTransfer   TransactionType = "TRANSFER"
)

type TransactionStatus string

const (
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
)

// Audit activity types and outcomes, matching the audit_log schema.
const (
	AuditLogin     = "LOGIN"
	AuditLogout    = "LOGOUT"
	AuditPinChange = "PIN_CHANGE"

	AuditSuccess = "SUCCESS"
	AuditFailed  = "FAILED"
)
