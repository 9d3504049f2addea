package checkout

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/storefront/backend/internal/domain/checkout"
)

// ReleasePending moves every PENDING reservation of batch to RELEASED and
// returns its stock to the ledger. A reservation whose status guard fails has
// already been confirmed or released elsewhere and is skipped, so stock is
// returned at most once per reservation.
//
// Reservations are released in ascending SKU id order. The returned batch
// holds the reservations this call actually released.
func ReleasePending(ctx context.Context, repos TransactionalRepositories, batch checkout.ReservationBatch, reason checkout.ReleaseReason, now time.Time) (checkout.ReservationBatch, error) {
	ordered := make(checkout.ReservationBatch, len(batch))
	copy(ordered, batch)
	sortBySKU(ordered)

	released := make(checkout.ReservationBatch, 0, len(ordered))
	references := make(map[string]struct{})
	for i := range ordered {
		r := ordered[i]
		if !r.IsPending() {
			continue
		}
		ok, err := repos.ReservationRepo().ReleaseIfPending(ctx, r.ID, reason, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := repos.Ledger().Release(ctx, r.SKUID, r.Quantity); err != nil {
			return nil, fmt.Errorf("return stock of reservation %s: %w", r.ID, err)
		}
		_ = r.Release(now, reason)
		released = append(released, r)
		references[r.Reference] = struct{}{}
	}

	for ref := range references {
		if err := repos.CheckoutRepo().UpdateStatus(ctx, ref, checkout.ReservationReleased, now); err != nil {
			return nil, fmt.Errorf("mark checkout %s released: %w", ref, err)
		}
	}
	return released, nil
}

// sortBySKU orders reservations by SKU id so that row locks on sku_stocks are
// always taken in the same order.
func sortBySKU(batch checkout.ReservationBatch) {
	sort.SliceStable(batch, func(i, j int) bool {
		return bytes.Compare(batch[i].SKUID[:], batch[j].SKUID[:]) < 0
	})
}
