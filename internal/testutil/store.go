package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/hold"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/paymentop"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/spot"
)

type txKey struct{}

type counterBucket struct {
	count     int
	expiresAt time.Time
}

type state struct {
	spots         map[uuid.UUID]domain.ParkingSpot
	blocks        []domain.CalendarBlock
	holds         map[uuid.UUID]domain.Hold
	reservations  map[uuid.UUID]domain.Reservation
	extensions    []domain.ReservationExtension
	ops           map[uuid.UUID]domain.PaymentOperation
	opOrder       []uuid.UUID
	notifications []domain.Notification
	counters      map[string]counterBucket
}

func newState() state {
	return state{
		spots:        make(map[uuid.UUID]domain.ParkingSpot),
		holds:        make(map[uuid.UUID]domain.Hold),
		reservations: make(map[uuid.UUID]domain.Reservation),
		ops:          make(map[uuid.UUID]domain.PaymentOperation),
		counters:     make(map[string]counterBucket),
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.spots {
		c.spots[k] = v
	}
	for k, v := range s.holds {
		c.holds[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.ops {
		c.ops[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	c.blocks = append(c.blocks, s.blocks...)
	c.extensions = append(c.extensions, s.extensions...)
	c.opOrder = append(c.opOrder, s.opOrder...)
	c.notifications = append(c.notifications, s.notifications...)
	return c
}

// Store in-memory stand-in for the PostgreSQL schema. Transactions are serialized
// by a single mutex and roll back to a snapshot when the callback fails, so the
// exclusion and uniqueness guarantees of the real schema hold under concurrency.
type Store struct {
	mu       sync.Mutex
	clock    *Clock
	st       state
	failures map[string]error
}

func NewStore(clock *Clock) *Store {
	return &Store{
		clock:    clock,
		st:       newState(),
		failures: make(map[string]error),
	}
}

// FailOn makes the next call of the named repository method return err.
// Names look like "Reservation.Transition" or "PaymentOp.UpdateStatus".
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// lock acquires the store unless ctx already runs inside one of its transactions
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) injected(method string) error {
	if err, ok := s.failures[method]; ok {
		delete(s.failures, method)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// TxManager transaction manager over the store
type TxManager struct {
	s *Store
}

func (s *Store) TxManager() *TxManager {
	return &TxManager{s: s}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.s.inTx(ctx, fn)
}

func (m *TxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.s.inTx(ctx, fn)
}

func (m *TxManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.s.inTx(ctx, fn)
}

// Seeding and inspection helpers

func (s *Store) AddSpot(sp domain.ParkingSpot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	s.st.spots[sp.ID] = sp
}

func (s *Store) AddCalendarBlock(b domain.CalendarBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	s.st.blocks = append(s.st.blocks, b)
}

// PutReservation stores res verbatim, timestamps included
func (s *Store) PutReservation(res domain.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.Version == 0 {
		res.Version = 1
	}
	s.st.reservations[res.ID] = res
}

// PutHold stores h verbatim
func (s *Store) PutHold(h domain.Hold) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	s.st.holds[h.ID] = h
}

// PutPaymentOp stores op verbatim
func (s *Store) PutPaymentOp(op domain.PaymentOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	s.st.ops[op.ID] = op
	s.st.opOrder = append(s.st.opOrder, op.ID)
}

func (s *Store) Reservation(id uuid.UUID) (domain.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.st.reservations[id]
	return res, ok
}

func (s *Store) Reservations() []domain.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Reservation, 0, len(s.st.reservations))
	for _, r := range s.st.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start.Before(out[j].Interval.Start) })
	return out
}

func (s *Store) Holds() []domain.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Hold, 0, len(s.st.holds))
	for _, h := range s.st.holds {
		out = append(out, h)
	}
	return out
}

func (s *Store) Extensions() []domain.ReservationExtension {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ReservationExtension(nil), s.st.extensions...)
}

// PaymentOps operations in creation order
func (s *Store) PaymentOps() []domain.PaymentOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PaymentOperation, 0, len(s.st.opOrder))
	for _, id := range s.st.opOrder {
		out = append(out, s.st.ops[id])
	}
	return out
}

func (s *Store) StoredNotifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.st.notifications...)
}

// Reservations repository

type ReservationRepo struct {
	s *Store
}

func (s *Store) ReservationRepo() *ReservationRepo {
	return &ReservationRepo{s: s}
}

func (r *ReservationRepo) overlapsBlocking(res domain.Reservation, interval domain.Interval) bool {
	for _, other := range r.s.st.reservations {
		if other.ID == res.ID || other.SpotID != res.SpotID || !other.Status.IsBlocking() {
			continue
		}
		if other.Interval.Overlaps(interval) {
			return true
		}
	}
	return false
}

func (r *ReservationRepo) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.Create"); err != nil {
		return nil, err
	}

	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.Status.IsBlocking() && r.overlapsBlocking(*res, res.Interval) {
		return nil, reservation.ErrOverlap
	}

	now := r.s.clock.Now()
	res.Version = 1
	res.CreatedAt = now
	res.UpdatedAt = now
	r.s.st.reservations[res.ID] = *res
	return res, nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.GetByID"); err != nil {
		return nil, err
	}
	res, ok := r.s.st.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return &res, nil
}

func (r *ReservationRepo) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Reservation, error) {
	defer r.s.lock(ctx)()
	for _, res := range r.s.st.reservations {
		if res.PaymentRef != nil && *res.PaymentRef == paymentRef {
			found := res
			return &found, nil
		}
	}
	return nil, reservation.ErrReservationNotFound
}

func (r *ReservationRepo) FindByFilter(ctx context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.FindByFilter"); err != nil {
		return nil, err
	}

	out := make([]*domain.Reservation, 0)
	for _, res := range r.s.st.reservations {
		if res.SpotID != filter.SpotID {
			continue
		}
		if filter.Overlapping != nil && !res.Interval.Overlaps(*filter.Overlapping) {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(filter.Statuses, res.Status) {
			continue
		}
		if filter.ExcludeClaimantID != nil && res.IsClaimant(*filter.ExcludeClaimantID) {
			continue
		}
		if filter.ExcludeReservationID != nil && res.ID == *filter.ExcludeReservationID {
			continue
		}
		found := res
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start.Before(out[j].Interval.Start) })
	return out, nil
}

func (r *ReservationRepo) ListReminderDue(ctx context.Context, now time.Time, fraction float64, limit int) ([]*domain.Reservation, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.ListReminderDue"); err != nil {
		return nil, err
	}
	return r.listAwaiting(limit, func(res domain.Reservation) bool {
		return now.Before(res.ConfirmDeadline) && !res.ReminderAt(fraction).After(now) && !r.s.reminded(res.ID)
	}), nil
}

func (s *Store) reminded(id uuid.UUID) bool {
	for _, n := range s.st.notifications {
		if n.Type.IsReminder() && n.RelatedID == id {
			return true
		}
	}
	return false
}

func (r *ReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.ListExpired"); err != nil {
		return nil, err
	}
	return r.listAwaiting(limit, func(res domain.Reservation) bool {
		return !now.Before(res.ConfirmDeadline)
	}), nil
}

func (r *ReservationRepo) listAwaiting(limit int, match func(domain.Reservation) bool) []*domain.Reservation {
	out := make([]*domain.Reservation, 0)
	for _, res := range r.s.st.reservations {
		if !res.Status.IsAwaitingConfirmation() || !match(res) {
			continue
		}
		found := res
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfirmDeadline.Before(out[j].ConfirmDeadline) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *ReservationRepo) Transition(ctx context.Context, res *domain.Reservation, upd reservation.StatusUpdate) error {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.Transition"); err != nil {
		return err
	}

	stored, ok := r.s.st.reservations[res.ID]
	if !ok || stored.Status != res.Status || stored.Version != res.Version {
		return reservation.ErrStatusChanged
	}

	next := stored
	next.Status = upd.To
	if upd.PaymentRef != nil {
		next.PaymentRef = upd.PaymentRef
	}
	if upd.Captured != nil {
		next.Captured = *upd.Captured
	}
	if upd.Refunded != nil {
		next.Refunded = *upd.Refunded
	}
	if upd.RefundRef != nil {
		next.RefundRef = upd.RefundRef
	}
	if upd.CancellationReason != nil {
		next.CancellationReason = upd.CancellationReason
	}
	if upd.CanceledBy != nil {
		next.CanceledBy = upd.CanceledBy
	}
	if upd.CanceledAt != nil {
		next.CanceledAt = upd.CanceledAt
	}

	if next.Refunded > next.Captured {
		return reservation.ErrRefundExceedsCaptured
	}
	if next.Status.IsBlocking() && !stored.Status.IsBlocking() && r.overlapsBlocking(next, next.Interval) {
		return reservation.ErrOverlap
	}

	next.Version++
	next.UpdatedAt = r.s.clock.Now()
	r.s.st.reservations[res.ID] = next
	*res = next
	return nil
}

func (r *ReservationRepo) SetPaymentRef(ctx context.Context, res *domain.Reservation, paymentRef string) error {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.SetPaymentRef"); err != nil {
		return err
	}

	stored, ok := r.s.st.reservations[res.ID]
	if !ok || stored.Version != res.Version {
		return reservation.ErrStatusChanged
	}
	stored.PaymentRef = &paymentRef
	stored.Version++
	stored.UpdatedAt = r.s.clock.Now()
	r.s.st.reservations[res.ID] = stored

	res.PaymentRef = &paymentRef
	res.Version = stored.Version
	return nil
}

func (r *ReservationRepo) ApplyExtension(ctx context.Context, res *domain.Reservation, newEnd time.Time, newPrice domain.PriceBreakdown, captured domain.Money, reviewDeadline, now time.Time) error {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.ApplyExtension"); err != nil {
		return err
	}

	stored, ok := r.s.st.reservations[res.ID]
	if !ok || stored.Version != res.Version || !stored.Interval.End.Equal(res.Interval.End) || !stored.Status.IsCommitted() {
		return reservation.ErrStatusChanged
	}

	extended := stored.Interval.Extend(newEnd)
	if r.overlapsBlocking(stored, extended) {
		return reservation.ErrOverlap
	}

	stored.Interval = extended
	stored.Price = newPrice
	stored.Captured = captured
	stored.ExtensionCount++
	stored.LastExtendedAt = &now
	stored.ReviewDeadline = reviewDeadline
	stored.Version++
	stored.UpdatedAt = r.s.clock.Now()
	r.s.st.reservations[res.ID] = stored
	*res = stored
	return nil
}

func (r *ReservationRepo) InsertExtension(ctx context.Context, ext *domain.ReservationExtension) error {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.InsertExtension"); err != nil {
		return err
	}
	if ext.ID == uuid.Nil {
		ext.ID = uuid.New()
	}
	ext.CreatedAt = r.s.clock.Now()
	r.s.st.extensions = append(r.s.st.extensions, *ext)
	return nil
}

func (r *ReservationRepo) CompleteEnded(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.CompleteEnded"); err != nil {
		return nil, err
	}

	ended := make([]domain.Reservation, 0)
	for _, res := range r.s.st.reservations {
		if res.Status.IsCommitted() && !res.Interval.End.After(now) {
			ended = append(ended, res)
		}
	}
	sort.Slice(ended, func(i, j int) bool { return ended[i].Interval.End.Before(ended[j].Interval.End) })
	if len(ended) > limit {
		ended = ended[:limit]
	}

	ids := make([]uuid.UUID, 0, len(ended))
	for _, res := range ended {
		res.Status = domain.StatusCompleted
		res.Version++
		res.UpdatedAt = r.s.clock.Now()
		r.s.st.reservations[res.ID] = res
		ids = append(ids, res.ID)
	}
	return ids, nil
}

func (r *ReservationRepo) LinkGuest(ctx context.Context, userID uuid.UUID, normalizedEmail, phoneSuffix string) ([]uuid.UUID, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Reservation.LinkGuest"); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0)
	if normalizedEmail == "" && phoneSuffix == "" {
		return ids, nil
	}
	for id, res := range r.s.st.reservations {
		if res.ClaimantID != nil || res.Guest == nil {
			continue
		}
		emailMatch := normalizedEmail != "" && res.Guest.NormalizedEmail() == normalizedEmail
		phoneMatch := phoneSuffix != "" && res.Guest.PhoneKey() == phoneSuffix
		if !emailMatch && !phoneMatch {
			continue
		}
		owner := userID
		res.ClaimantID = &owner
		res.Version++
		res.UpdatedAt = r.s.clock.Now()
		r.s.st.reservations[id] = res
		ids = append(ids, id)
	}
	return ids, nil
}

func statusIn(list []domain.ReservationStatus, s domain.ReservationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Holds repository

type HoldRepo struct {
	s *Store
}

func (s *Store) HoldRepo() *HoldRepo {
	return &HoldRepo{s: s}
}

func (r *HoldRepo) Create(ctx context.Context, h *domain.Hold) (*domain.Hold, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Hold.Create"); err != nil {
		return nil, err
	}

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	for _, other := range r.s.st.holds {
		if other.IdempotencyKey == h.IdempotencyKey {
			return nil, hold.ErrDuplicateIdempotencyKey
		}
	}
	// the exclusion constraint does not know about expiry
	for _, other := range r.s.st.holds {
		if other.SpotID == h.SpotID && other.Interval.Overlaps(h.Interval) {
			return nil, hold.ErrOverlap
		}
	}

	h.CreatedAt = r.s.clock.Now()
	r.s.st.holds[h.ID] = *h
	return h, nil
}

func (r *HoldRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	defer r.s.lock(ctx)()
	h, ok := r.s.st.holds[id]
	if !ok {
		return nil, hold.ErrHoldNotFound
	}
	return &h, nil
}

func (r *HoldRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Hold, error) {
	defer r.s.lock(ctx)()
	for _, h := range r.s.st.holds {
		if h.IdempotencyKey == key {
			found := h
			return &found, nil
		}
	}
	return nil, hold.ErrHoldNotFound
}

func (r *HoldRepo) FindLiveOverlapping(ctx context.Context, spotID uuid.UUID, interval domain.Interval, now time.Time, excludeClaimantID *uuid.UUID) ([]*domain.Hold, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Hold.FindLiveOverlapping"); err != nil {
		return nil, err
	}

	out := make([]*domain.Hold, 0)
	for _, h := range r.s.st.holds {
		if h.SpotID != spotID || h.IsExpired(now) || !h.Interval.Overlaps(interval) {
			continue
		}
		if excludeClaimantID != nil && h.ClaimantID == *excludeClaimantID {
			continue
		}
		found := h
		out = append(out, &found)
	}
	return out, nil
}

func (r *HoldRepo) PurgeExpired(ctx context.Context, spotID *uuid.UUID, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Hold.PurgeExpired"); err != nil {
		return 0, err
	}
	return r.deleteWhere(func(h domain.Hold) bool {
		return h.IsExpired(now) && (spotID == nil || h.SpotID == *spotID)
	}), nil
}

func (r *HoldRepo) DeleteClaimantOverlapping(ctx context.Context, spotID, claimantID uuid.UUID, interval domain.Interval) (int64, error) {
	defer r.s.lock(ctx)()
	return r.deleteWhere(func(h domain.Hold) bool {
		return h.SpotID == spotID && h.ClaimantID == claimantID && h.Interval.Overlaps(interval)
	}), nil
}

func (r *HoldRepo) DeleteByClaimantAndSpot(ctx context.Context, claimantID, spotID uuid.UUID) (int64, error) {
	defer r.s.lock(ctx)()
	return r.deleteWhere(func(h domain.Hold) bool {
		return h.SpotID == spotID && h.ClaimantID == claimantID
	}), nil
}

func (r *HoldRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.holds[id]; !ok {
		return hold.ErrHoldNotFound
	}
	delete(r.s.st.holds, id)
	return nil
}

func (r *HoldRepo) deleteWhere(match func(domain.Hold) bool) int64 {
	var n int64
	for id, h := range r.s.st.holds {
		if match(h) {
			delete(r.s.st.holds, id)
			n++
		}
	}
	return n
}

// Spots repository

type SpotRepo struct {
	s *Store
}

func (s *Store) SpotRepo() *SpotRepo {
	return &SpotRepo{s: s}
}

func (r *SpotRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSpot, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Spot.GetByID"); err != nil {
		return nil, err
	}
	sp, ok := r.s.st.spots[id]
	if !ok {
		return nil, spot.ErrSpotNotFound
	}
	return &sp, nil
}

func (r *SpotRepo) GetCalendarBlocks(ctx context.Context, spotID uuid.UUID, interval domain.Interval) ([]*domain.CalendarBlock, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Spot.GetCalendarBlocks"); err != nil {
		return nil, err
	}

	days := make(map[string]struct{})
	for _, d := range interval.Days() {
		days[d.Format("2006-01-02")] = struct{}{}
	}

	out := make([]*domain.CalendarBlock, 0)
	for _, b := range r.s.st.blocks {
		if b.SpotID != spotID {
			continue
		}
		if _, ok := days[b.Date.UTC().Format("2006-01-02")]; !ok {
			continue
		}
		found := b
		out = append(out, &found)
	}
	return out, nil
}

// Payment operations repository

type PaymentOpRepo struct {
	s *Store
}

func (s *Store) PaymentOpRepo() *PaymentOpRepo {
	return &PaymentOpRepo{s: s}
}

func (r *PaymentOpRepo) Create(ctx context.Context, op *domain.PaymentOperation) (*domain.PaymentOperation, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("PaymentOp.Create"); err != nil {
		return nil, err
	}

	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	for _, other := range r.s.st.ops {
		if other.IdempotencyKey == op.IdempotencyKey {
			return nil, paymentop.ErrDuplicateIdempotencyKey
		}
	}

	now := r.s.clock.Now()
	op.CreatedAt = now
	op.UpdatedAt = now
	stored := *op
	stored.Resumed = false
	r.s.st.ops[op.ID] = stored
	r.s.st.opOrder = append(r.s.st.opOrder, op.ID)
	return op, nil
}

func (r *PaymentOpRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentOperation, error) {
	defer r.s.lock(ctx)()
	op, ok := r.s.st.ops[id]
	if !ok {
		return nil, paymentop.ErrOperationNotFound
	}
	return &op, nil
}

func (r *PaymentOpRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentOperation, error) {
	defer r.s.lock(ctx)()
	for _, op := range r.s.st.ops {
		if op.IdempotencyKey == key {
			found := op
			return &found, nil
		}
	}
	return nil, paymentop.ErrOperationNotFound
}

// GetByPaymentRef latest operation carrying paymentRef
func (r *PaymentOpRepo) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.PaymentOperation, error) {
	defer r.s.lock(ctx)()
	for i := len(r.s.st.opOrder) - 1; i >= 0; i-- {
		op := r.s.st.ops[r.s.st.opOrder[i]]
		if op.PaymentRef != nil && *op.PaymentRef == paymentRef {
			return &op, nil
		}
	}
	return nil, paymentop.ErrOperationNotFound
}

func (r *PaymentOpRepo) UpdateStatus(ctx context.Context, op *domain.PaymentOperation, next domain.PaymentOperationStatus, paymentRef, errMsg *string) error {
	defer r.s.lock(ctx)()
	if err := r.s.injected("PaymentOp.UpdateStatus"); err != nil {
		return err
	}
	if err := r.s.injected("PaymentOp.UpdateStatus." + string(next)); err != nil {
		return err
	}

	stored, ok := r.s.st.ops[op.ID]
	if !ok || stored.Status != op.Status {
		return paymentop.ErrStatusChanged
	}
	stored.Status = next
	stored.UpdatedAt = r.s.clock.Now()
	if paymentRef != nil {
		stored.PaymentRef = paymentRef
	}
	if errMsg != nil {
		stored.Error = errMsg
	}
	r.s.st.ops[op.ID] = stored

	op.Status = stored.Status
	op.UpdatedAt = stored.UpdatedAt
	op.PaymentRef = stored.PaymentRef
	op.Error = stored.Error
	return nil
}

func (r *PaymentOpRepo) ListStale(ctx context.Context, statuses []domain.PaymentOperationStatus, olderThan time.Time, limit int) ([]*domain.PaymentOperation, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("PaymentOp.ListStale"); err != nil {
		return nil, err
	}

	out := make([]*domain.PaymentOperation, 0)
	for _, id := range r.s.st.opOrder {
		op := r.s.st.ops[id]
		if op.UpdatedAt.After(olderThan) {
			continue
		}
		for _, st := range statuses {
			if op.Status == st {
				found := op
				out = append(out, &found)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Notifications repository

type NotificationRepo struct {
	s *Store
}

func (s *Store) NotificationRepo() *NotificationRepo {
	return &NotificationRepo{s: s}
}

func (r *NotificationRepo) Insert(ctx context.Context, n *domain.Notification) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Notification.Insert"); err != nil {
		return false, err
	}

	if n.Type.IsReminder() {
		for _, other := range r.s.st.notifications {
			if other.Type == n.Type && other.RelatedID == n.RelatedID {
				return false, nil
			}
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = r.s.clock.Now()
	r.s.st.notifications = append(r.s.st.notifications, *n)
	return true, nil
}

func (r *NotificationRepo) Exists(ctx context.Context, t domain.NotificationType, relatedID uuid.UUID) (bool, error) {
	defer r.s.lock(ctx)()
	for _, n := range r.s.st.notifications {
		if n.Type == t && n.RelatedID == relatedID {
			return true, nil
		}
	}
	return false, nil
}

// Rate limit counters

type CounterRepo struct {
	s *Store
}

func (s *Store) CounterRepo() *CounterRepo {
	return &CounterRepo{s: s}
}

func (r *CounterRepo) CheckAndIncrement(ctx context.Context, key string, windowStart time.Time, window time.Duration) (current, previous int, err error) {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Counter.CheckAndIncrement"); err != nil {
		return 0, 0, err
	}

	curKey := key + "@" + windowStart.UTC().Format(time.RFC3339Nano)
	prevKey := key + "@" + windowStart.Add(-window).UTC().Format(time.RFC3339Nano)

	b := r.s.st.counters[curKey]
	b.count++
	b.expiresAt = windowStart.Add(2 * window)
	r.s.st.counters[curKey] = b

	return b.count, r.s.st.counters[prevKey].count, nil
}

func (r *CounterRepo) Release(ctx context.Context, key string, windowStart time.Time) error {
	defer r.s.lock(ctx)()
	if err := r.s.injected("Counter.Release"); err != nil {
		return err
	}

	curKey := key + "@" + windowStart.UTC().Format(time.RFC3339Nano)
	if b, ok := r.s.st.counters[curKey]; ok && b.count > 0 {
		b.count--
		r.s.st.counters[curKey] = b
	}
	return nil
}

func (r *CounterRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for k, b := range r.s.st.counters {
		if !b.expiresAt.After(now) {
			delete(r.s.st.counters, k)
			n++
		}
	}
	return n, nil
}
