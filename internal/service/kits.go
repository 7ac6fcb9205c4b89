package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog/log"

	"kitstock-api/internal/events"
	"kitstock-api/internal/model"
	"kitstock-api/internal/repository"
	"kitstock-api/pkg/uid"
)

// SellInput describes one sell request.
type SellInput struct {
	OrderID    string
	InvoiceURL string
	InvoiceID  string
	Quantity   int
}

// DeleteResult reports the outcome of a bulk delete.
type DeleteResult struct {
	Deleted []string `json:"deleted"`
	Skipped []string `json:"skipped"`
}

// KitService allocates, restocks and maintains kit inventory.
type KitService struct {
	kits    repository.KitRepository
	events  events.Publisher
	pairing int
}

// NewKitService creates a kit service. pairing is the number of units
// consumed per requested quantity.
func NewKitService(kits repository.KitRepository, publisher events.Publisher, pairing int) *KitService {
	if pairing < 1 {
		pairing = 1
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &KitService{kits: kits, events: publisher, pairing: pairing}
}

// PairingFactor returns the configured pairing factor.
func (s *KitService) PairingFactor() int {
	return s.pairing
}

// List returns every kit.
func (s *KitService) List(ctx context.Context) ([]model.Kit, error) {
	return s.kits.List(ctx)
}

// ListAvailable returns exactly quantity × pairing available units without
// reserving them.
func (s *KitService) ListAvailable(ctx context.Context, quantity int) ([]model.Kit, error) {
	need, err := s.units(quantity)
	if err != nil {
		return nil, err
	}

	kits, err := s.kits.ListAvailable(ctx, need)
	if err != nil {
		return nil, err
	}
	if len(kits) < need {
		return nil, fmt.Errorf("%w: requested %d, available %d", model.ErrInsufficientInventory, need, len(kits))
	}
	return kits, nil
}

// units converts a requested quantity into the number of inventory units it
// consumes, rejecting quantities whose unit count would overflow.
func (s *KitService) units(quantity int) (int, error) {
	if quantity < 1 {
		return 0, fmt.Errorf("%w: quantity must be at least 1", model.ErrInvalidInput)
	}
	if quantity > math.MaxInt/s.pairing {
		return 0, fmt.Errorf("%w: quantity %d is too large", model.ErrInvalidInput, quantity)
	}
	return quantity * s.pairing, nil
}

// Sell claims quantity × pairing available units for an order and merges
// them into the order's sold aggregate.
func (s *KitService) Sell(ctx context.Context, in SellInput) (*model.Kit, error) {
	if in.OrderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", model.ErrInvalidInput)
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}
	need, err := s.units(in.Quantity)
	if err != nil {
		return nil, err
	}

	stamp := model.SaleStamp{OrderID: in.OrderID, InvoiceURL: in.InvoiceURL, InvoiceID: in.InvoiceID}
	claimed, err := s.kits.ClaimAvailable(ctx, need, stamp)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientInventory) {
			return nil, fmt.Errorf("%w: requested %d", err, need)
		}
		return nil, err
	}

	sold, err := s.kits.ListByOrder(ctx, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("claimed %d kits for order %s but failed to load aggregate: %w", len(claimed), in.OrderID, err)
	}

	target, absorbed := mergeOrder(sold, claimed, stamp)
	if target == nil {
		return nil, fmt.Errorf("claimed kits for order %s disappeared before merge: %w", in.OrderID, model.ErrConflict)
	}

	if len(absorbed) > 0 {
		if err := s.kits.MergeSold(ctx, target, absorbed); err != nil {
			return nil, fmt.Errorf("failed to merge kits for order %s: %w", in.OrderID, err)
		}
	}

	log.Info().
		Str("order_id", in.OrderID).
		Int("units", need).
		Str("kit_id", target.ID).
		Msg("Kits sold")

	s.events.Publish(ctx, events.KitSold, in.OrderID, map[string]any{
		"orderId":   in.OrderID,
		"invoiceId": in.InvoiceID,
		"quantity":  in.Quantity,
		"units":     need,
		"kitId":     target.ID,
	})
	return target, nil
}

// mergeOrder builds the order aggregate from the order's sold kits. Kits
// sold before this request come first, then the newly claimed ones, each in
// id order. The first becomes the target; the rest are absorbed into it.
func mergeOrder(sold, claimed []model.Kit, stamp model.SaleStamp) (*model.Kit, []string) {
	fresh := make(map[string]struct{}, len(claimed))
	for _, k := range claimed {
		fresh[k.ID] = struct{}{}
	}

	ordered := make([]model.Kit, 0, len(sold))
	var newer []model.Kit
	for _, k := range sold {
		if k.Status != model.KitSold {
			continue
		}
		if _, ok := fresh[k.ID]; ok {
			newer = append(newer, k)
			continue
		}
		ordered = append(ordered, k)
	}
	ordered = append(ordered, newer...)
	if len(ordered) == 0 {
		return nil, nil
	}

	target := ordered[0]
	var serials, batches []string
	absorbed := make([]string, 0, len(ordered)-1)
	for i, k := range ordered {
		serials = append(serials, k.SerialNumbers...)
		batches = append(batches, k.BatchNumbers...)
		if i > 0 {
			absorbed = append(absorbed, k.ID)
		}
	}

	target.SerialNumbers = model.StringList(model.Unique(serials))
	target.BatchNumbers = model.StringList(model.Unique(batches))
	target.InvoiceURL = stamp.InvoiceURL
	target.InvoiceID = stamp.InvoiceID
	return &target, absorbed
}

// AddDummy seeds four sample units SN001-SN004.
func (s *KitService) AddDummy(ctx context.Context) ([]model.Kit, error) {
	kits := make([]model.Kit, 0, 4)
	for i := 1; i <= 4; i++ {
		kits = append(kits, *model.NewAvailableKit(
			[]string{fmt.Sprintf("SN%03d", i)},
			[]string{fmt.Sprintf("B%03d", i)},
		))
	}
	if err := s.kits.InsertMany(ctx, kits); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.KitsImported, "", map[string]any{"count": len(kits), "source": "dummy"})
	return kits, nil
}

// Import inserts one available unit per CSV row read from r.
func (s *KitService) Import(ctx context.Context, r io.Reader) ([]model.Kit, error) {
	kits, err := ParseKitCSV(r)
	if err != nil {
		return nil, err
	}
	if len(kits) == 0 {
		return kits, nil
	}
	if err := s.kits.InsertMany(ctx, kits); err != nil {
		return nil, err
	}

	log.Info().Int("count", len(kits)).Msg("Kits imported")
	s.events.Publish(ctx, events.KitsImported, "", map[string]any{"count": len(kits), "source": "csv"})
	return kits, nil
}

// Delete removes one available kit.
func (s *KitService) Delete(ctx context.Context, id string) error {
	kit, err := s.kits.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !kit.IsAvailable() {
		return model.ErrNotAvailable
	}

	deleted, err := s.kits.DeleteAvailable(ctx, []string{id})
	if err != nil {
		return err
	}
	if len(deleted) == 0 {
		// sold between the read and the delete
		return model.ErrNotAvailable
	}

	s.events.Publish(ctx, events.KitsDeleted, "", map[string]any{"ids": deleted})
	return nil
}

// DeleteMany removes the available kits among ids. Sold and unknown ids are
// reported as skipped.
func (s *KitService) DeleteMany(ctx context.Context, ids []string) (*DeleteResult, error) {
	ids = model.Unique(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: ids must be a non-empty array", model.ErrInvalidInput)
	}

	// Ids this service never issued cannot match a stored kit.
	candidates := make([]string, 0, len(ids))
	for _, id := range ids {
		if uid.IsValid(id) {
			candidates = append(candidates, id)
		}
	}

	deleted := []string{}
	if len(candidates) > 0 {
		var err error
		if deleted, err = s.kits.DeleteAvailable(ctx, candidates); err != nil {
			return nil, err
		}
	}
	if deleted == nil {
		deleted = []string{}
	}

	gone := make(map[string]struct{}, len(deleted))
	for _, id := range deleted {
		gone[id] = struct{}{}
	}
	result := &DeleteResult{Deleted: deleted, Skipped: []string{}}
	for _, id := range ids {
		if _, ok := gone[id]; !ok {
			result.Skipped = append(result.Skipped, id)
		}
	}

	if len(deleted) > 0 {
		s.events.Publish(ctx, events.KitsDeleted, "", map[string]any{"ids": deleted})
	}
	return result, nil
}

// MakeAvailable splits sold aggregates back into available units of
// pairing size. Every id must exist and be sold, otherwise nothing changes.
func (s *KitService) MakeAvailable(ctx context.Context, ids []string) ([]model.Kit, error) {
	ids = model.Unique(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: ids must be a non-empty array", model.ErrInvalidInput)
	}

	kits, err := s.kits.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(kits) != len(ids) {
		return nil, model.ErrNotSold
	}
	for i := range kits {
		if kits[i].Status != model.KitSold {
			return nil, model.ErrNotSold
		}
	}

	fresh := make([]model.Kit, 0, len(kits))
	for _, k := range kits {
		for _, group := range model.SplitGroups(k.SerialNumbers, s.pairing) {
			fresh = append(fresh, *model.NewAvailableKit(group, k.BatchNumbers))
		}
	}

	if err := s.kits.ReplaceSold(ctx, ids, fresh); err != nil {
		return nil, err
	}

	log.Info().
		Int("aggregates", len(kits)).
		Int("units", len(fresh)).
		Msg("Kits made available")

	s.events.Publish(ctx, events.KitsRestocked, "", map[string]any{
		"soldIds": ids,
		"count":   len(fresh),
	})
	return fresh, nil
}

// Stats returns inventory counts per status.
func (s *KitService) Stats(ctx context.Context) (model.KitCounts, error) {
	return s.kits.Counts(ctx)
}
