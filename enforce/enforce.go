// enforce/enforce.go
package enforce

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/google/uuid"

	"riskguard/logs"
	"riskguard/platform"
)

// Compensation amounts below this are not worth a balance operation.
const negligibleCompensation = 0.01

// Outcome classifies the result of one strategy attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// Attempt records one strategy run against one target for the journal.
type Attempt struct {
	Target   int64 // position or order ticket, 0 for account-level actions
	Strategy string
	Outcome  Outcome
	Detail   string
}

// strategy is one tier of a close chain. attempt returns nil on success;
// any error moves the chain to the next tier.
type strategy struct {
	name    string
	attempt func(ctx context.Context) error
}

// Executor carries out enforcement actions against the platform: disabling
// breached accounts and force-closing their positions and orders through a
// tiered strategy chain.
type Executor struct {
	client    platform.Client
	closeTool string // optional external close binary, tried first when set
}

// NewExecutor creates an executor. closeTool may be empty to skip the
// external-tool tier.
func NewExecutor(client platform.Client, closeTool string) *Executor {
	return &Executor{client: client, closeTool: closeTool}
}

// firstSuccess runs the chain in order and stops at the first tier that
// succeeds. Every attempt is recorded, successful or not.
func firstSuccess(ctx context.Context, target int64, chain []strategy, attempts *[]Attempt) bool {
	for _, s := range chain {
		err := s.attempt(ctx)
		if err == nil {
			*attempts = append(*attempts, Attempt{Target: target, Strategy: s.name, Outcome: OutcomeSuccess})
			return true
		}
		outcome := OutcomeError
		if _, rejected := err.(rejectionError); rejected {
			outcome = OutcomeRejected
		}
		*attempts = append(*attempts, Attempt{Target: target, Strategy: s.name, Outcome: outcome, Detail: err.Error()})
		logs.Warnf("[Enforce] Strategy %s failed for target %d: %v", s.name, target, err)
	}
	return false
}

// rejectionError marks a bridge rejection (non-success retcode) as opposed
// to a transport failure. Both advance the chain; only the journal differs.
type rejectionError struct {
	code platform.RetCode
}

func (e rejectionError) Error() string {
	return fmt.Sprintf("bridge rejected request with retcode %d", e.code)
}

// DisableAccount clears the enabled flag and all rights on a login, then
// reads the record back to confirm. Verification divergence is logged but
// does not fail the operation; the update itself was accepted.
func (ex *Executor) DisableAccount(ctx context.Context, login int64) error {
	acc, err := ex.client.GetAccount(ctx, login)
	if err != nil {
		return fmt.Errorf("failed to fetch account %d for disable: %w", login, err)
	}

	acc.Enabled = false
	acc.Rights = 0
	if err := ex.client.UpdateAccount(ctx, acc); err != nil {
		return fmt.Errorf("failed to disable account %d: %w", login, err)
	}

	verify, err := ex.client.GetAccount(ctx, login)
	if err != nil {
		logs.Warnf("[Enforce] Disabled %d but verification read failed: %v", login, err)
		return nil
	}
	if verify.Enabled || verify.Rights != 0 {
		logs.Warnf("[Enforce] Disabled %d but record reads back enabled=%v rights=%d", login, verify.Enabled, verify.Rights)
	} else {
		logs.Infof("[Enforce] Account %d disabled and verified", login)
	}
	return nil
}

// ClosePositions force-closes every open position on a login. Each position
// runs the full chain independently; one stuck position never blocks the
// rest. Returns the closed count, total count and the attempt journal.
func (ex *Executor) ClosePositions(ctx context.Context, login int64) (closed, total int, attempts []Attempt) {
	positions, err := ex.client.GetPositions(ctx, login)
	if err != nil {
		logs.Errorf("[Enforce] Failed to list positions for %d: %v", login, err)
		return 0, 0, nil
	}

	for _, pos := range positions {
		pos := pos
		chain := ex.positionChain(login, pos)
		if firstSuccess(ctx, pos.Ticket, chain, &attempts) {
			closed++
		} else {
			logs.Errorf("[Enforce] All strategies exhausted for position #%d on %d", pos.Ticket, login)
		}
	}
	return closed, len(positions), attempts
}

// positionChain builds the tiered close chain for one position: external
// tool when configured, native dealer close, native stop-out, then the
// synthetic delete-and-compensate fallback.
func (ex *Executor) positionChain(login int64, pos platform.Position) []strategy {
	var chain []strategy

	if ex.closeTool != "" {
		chain = append(chain, strategy{
			name: "external_tool",
			attempt: func(ctx context.Context) error {
				return ex.runCloseTool(ctx, login, pos.Ticket)
			},
		})
	}

	chain = append(chain,
		strategy{
			name: "native_dealer_close",
			attempt: func(ctx context.Context) error {
				return ex.sendClose(ctx, platform.ActionDealerClose, login, pos)
			},
		},
		strategy{
			name: "native_stopout",
			attempt: func(ctx context.Context) error {
				return ex.sendClose(ctx, platform.ActionStopOutPosition, login, pos)
			},
		},
		strategy{
			name: "synthetic_close",
			attempt: func(ctx context.Context) error {
				return ex.syntheticClose(ctx, login, pos)
			},
		},
	)
	return chain
}

// runCloseTool shells out to the configured close binary. Any non-zero exit
// is a failure; the tool's own output is opaque to us.
func (ex *Executor) runCloseTool(ctx context.Context, login, ticket int64) error {
	cmd := exec.CommandContext(ctx, ex.closeTool,
		strconv.FormatInt(login, 10), strconv.FormatInt(ticket, 10))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("close tool failed: %w, output: %s", err, string(out))
	}
	return nil
}

// sendClose submits a native close request and maps a non-success retcode
// to a rejection.
func (ex *Executor) sendClose(ctx context.Context, action platform.TradeAction, login int64, pos platform.Position) error {
	req := &platform.TradeRequest{
		Action:   action,
		Login:    login,
		Position: pos.Ticket,
		Symbol:   pos.Symbol,
		Volume:   pos.Volume,
		Comment:  "risk enforcement close",
		ClientID: uuid.NewString(),
	}
	code, err := ex.client.SendTradeRequest(ctx, req)
	if err != nil {
		return err
	}
	if !code.Success() {
		return rejectionError{code: code}
	}
	return nil
}

// syntheticClose removes the position record and compensates the balance
// for its floating result. Negligible amounts are not compensated.
func (ex *Executor) syntheticClose(ctx context.Context, login int64, pos platform.Position) error {
	if err := ex.client.DeletePosition(ctx, login, pos.Ticket); err != nil {
		return fmt.Errorf("synthetic close delete failed: %w", err)
	}

	net := pos.NetPL()
	if math.Abs(net) < negligibleCompensation {
		return nil
	}
	comment := fmt.Sprintf("compensation close #%d", pos.Ticket)
	if err := ex.client.AdjustBalance(ctx, login, net, comment); err != nil {
		// The record is already gone; surface the missing compensation loudly.
		logs.Errorf("[Enforce] Position #%d deleted but compensation of %.2f failed for %d: %v", pos.Ticket, net, login, err)
		return nil
	}
	return nil
}

// CloseOrders cancels every pending order on a login: native stop-out first,
// direct delete as fallback.
func (ex *Executor) CloseOrders(ctx context.Context, login int64) (closed, total int, attempts []Attempt) {
	orders, err := ex.client.GetOrders(ctx, login)
	if err != nil {
		logs.Errorf("[Enforce] Failed to list orders for %d: %v", login, err)
		return 0, 0, nil
	}

	for _, ord := range orders {
		ord := ord
		chain := []strategy{
			{
				name: "native_order_stopout",
				attempt: func(ctx context.Context) error {
					req := &platform.TradeRequest{
						Action:   platform.ActionStopOutOrder,
						Login:    login,
						Order:    ord.Ticket,
						Comment:  "risk enforcement cancel",
						ClientID: uuid.NewString(),
					}
					code, err := ex.client.SendTradeRequest(ctx, req)
					if err != nil {
						return err
					}
					if !code.Success() {
						return rejectionError{code: code}
					}
					return nil
				},
			},
			{
				name: "order_delete",
				attempt: func(ctx context.Context) error {
					return ex.client.DeleteOrder(ctx, login, ord.Ticket)
				},
			},
		}
		if firstSuccess(ctx, ord.Ticket, chain, &attempts) {
			closed++
		} else {
			logs.Errorf("[Enforce] All strategies exhausted for order #%d on %d", ord.Ticket, login)
		}
	}
	return closed, len(orders), attempts
}
