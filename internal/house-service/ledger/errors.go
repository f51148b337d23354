package ledger

import (
	"errors"
)

// Erros de domínio retornados pelo Engine. Sempre embrulhados com contexto via %w.
var (
	ErrAlreadyInitialized    = errors.New("already initialized")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientBankroll  = errors.New("insufficient bankroll")
	ErrInsufficientUserFunds = errors.New("insufficient user funds")
	ErrDuplicateBet          = errors.New("duplicate bet")
	ErrAlreadySettled        = errors.New("already settled")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrNotFound              = errors.New("not found")
)

// Erros do Store / serviço de transferência.
var (
	ErrRecordExists      = errors.New("record exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountClosed     = errors.New("account closed")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInsufficientBankroll, "InsufficientBankroll"},
	{ErrInsufficientUserFunds, "InsufficientUserFunds"},
	{ErrDuplicateBet, "DuplicateBet"},
	{ErrAlreadySettled, "AlreadySettled"},
	{ErrTransferFailed, "TransferFailed"},
	{ErrNotFound, "NotFound"},
}

// Kind retorna o nome da categoria do erro ("Internal" se não for erro de domínio)
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// IsCallerError diz se a falha foi causada pelo chamador (precondição violada)
// e não pelo sistema (banco, driver, rede).
func IsCallerError(err error) bool {
	return Kind(err) != "Internal" && err != nil
}
