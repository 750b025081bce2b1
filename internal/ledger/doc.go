// Package ledger holds the billing core: the totals calculator, discount
// engine, status resolver, payment ledger, receipt trail generator and the
// cancellation processor, plus a consistency checker over their invariants.
//
// Every function here is pure with respect to storage. Mutating operations
// work on the *domain.Bill handed to them and return the single receipt the
// mutation must be recorded with; persisting the bill and the receipt as one
// unit is the caller's job (see port.BillRepository.Mutate).
package ledger
