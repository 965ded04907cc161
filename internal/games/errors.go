package games

import "fmt"

// ContractError marks a structural violation of the game-record contract.
// It is always surfaced to the caller, never defaulted away: it means the
// upstream collector produced something the pipeline cannot trust.
type ContractError struct {
	Field  string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("game record contract violation: %s: %s", e.Field, e.Reason)
}
