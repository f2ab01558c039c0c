package reservation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/pqerr"
	"github.com/m04kA/SMC-ParkingService/pkg/psqlbuilder"
)

const table = "reservations"

var columns = []string{
	"id",
	"spot_id",
	"owner_id",
	"claimant_id",
	"guest_name",
	"guest_email",
	"guest_phone",
	"guest_vehicle",
	"starts_at",
	"ends_at",
	"status",
	"hourly_rate_cents",
	"claimant_rate_cents",
	"addon_rate_cents",
	"hours",
	"owner_gross_cents",
	"platform_fee_cents",
	"owner_net_cents",
	"subtotal_cents",
	"service_fee_cents",
	"addon_fee_cents",
	"total_cents",
	"captured_cents",
	"refunded_cents",
	"ev_charging",
	"payment_ref",
	"payment_method_ref",
	"refund_ref",
	"cancellation_reason",
	"canceled_by",
	"canceled_at",
	"extension_count",
	"last_extended_at",
	"confirm_deadline",
	"review_deadline",
	"version",
	"created_at",
	"updated_at",
}

// Repository reservations storage
type Repository struct {
	db DBExecutor
}

// NewRepository creates the repository
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create inserts a reservation. The exclusion constraint on blocking statuses is the
// authoritative overlap guard, a violation is reported as ErrOverlap.
func (r *Repository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}

	var guestName, guestEmail, guestEmailNorm, guestPhone, guestPhoneSuffix, guestVehicle *string
	if res.Guest != nil {
		guestName = &res.Guest.FullName
		guestEmail = res.Guest.Email
		guestPhone = res.Guest.Phone
		guestVehicle = &res.Guest.Vehicle
		if v := res.Guest.NormalizedEmail(); v != "" {
			guestEmailNorm = &v
		}
		if v := res.Guest.PhoneKey(); v != "" {
			guestPhoneSuffix = &v
		}
	}

	query, args, err := psqlbuilder.Insert(table).
		Columns(
			"id",
			"spot_id",
			"owner_id",
			"claimant_id",
			"guest_name",
			"guest_email",
			"guest_email_normalized",
			"guest_phone",
			"guest_phone_suffix",
			"guest_vehicle",
			"starts_at",
			"ends_at",
			"status",
			"hourly_rate_cents",
			"claimant_rate_cents",
			"addon_rate_cents",
			"hours",
			"owner_gross_cents",
			"platform_fee_cents",
			"owner_net_cents",
			"subtotal_cents",
			"service_fee_cents",
			"addon_fee_cents",
			"total_cents",
			"captured_cents",
			"refunded_cents",
			"ev_charging",
			"payment_ref",
			"payment_method_ref",
			"confirm_deadline",
			"review_deadline",
		).
		Values(
			res.ID,
			res.SpotID,
			res.OwnerID,
			res.ClaimantID,
			guestName,
			guestEmail,
			guestEmailNorm,
			guestPhone,
			guestPhoneSuffix,
			guestVehicle,
			res.Interval.Start,
			res.Interval.End,
			res.Status,
			res.Price.HourlyRate,
			res.Price.ClaimantRate,
			res.Price.AddOnRate,
			res.Price.Hours,
			res.Price.OwnerGross,
			res.Price.PlatformFee,
			res.Price.OwnerNet,
			res.Price.Subtotal,
			res.Price.ServiceFee,
			res.Price.AddOnFee,
			res.Price.Total,
			res.Captured,
			res.Refunded,
			res.EVCharging,
			res.PaymentRef,
			res.PaymentMethodRef,
			res.ConfirmDeadline,
			res.ReviewDeadline,
		).
		Suffix("RETURNING version, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&res.Version, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if pqerr.IsExclusionViolation(err) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return res, nil
}

// GetByID loads a reservation. Inside a transaction the row is locked FOR UPDATE.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	res, err := scanReservation(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan reservation: %v", ErrScanRow, err)
	}

	return res, nil
}

// GetByPaymentRef finds the reservation whose main authorization is paymentRef
func (r *Repository) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"payment_ref": paymentRef}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByPaymentRef - build select query: %v", ErrBuildQuery, err)
	}

	res, err := scanReservation(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByPaymentRef - scan reservation: %v", ErrScanRow, err)
	}

	return res, nil
}

// FindByFilter range query over a spot's reservations.
// Overlap uses the half-open rule: starts_at < end AND start < ends_at.
func (r *Repository) FindByFilter(ctx context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"spot_id": filter.SpotID}).
		OrderBy("starts_at ASC")

	if filter.Overlapping != nil {
		builder = builder.
			Where(squirrel.Lt{"starts_at": filter.Overlapping.End}).
			Where(squirrel.Gt{"ends_at": filter.Overlapping.Start})
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(squirrel.Eq{"status": domain.StatusStrings(filter.Statuses)})
	}
	if filter.ExcludeClaimantID != nil {
		builder = builder.Where(squirrel.Or{
			squirrel.Eq{"claimant_id": nil},
			squirrel.NotEq{"claimant_id": *filter.ExcludeClaimantID},
		})
	}
	if filter.ExcludeReservationID != nil {
		builder = builder.Where(squirrel.NotEq{"id": *filter.ExcludeReservationID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindByFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindByFilter - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// ListReminderDue reservations awaiting confirmation whose reminder point has passed
// but whose deadline has not. Reservations already reminded are skipped so they do
// not fill every batch.
func (r *Repository) ListReminderDue(ctx context.Context, now time.Time, fraction float64, limit int) ([]*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"status": domain.StatusStrings(domain.AwaitingConfirmationStatuses)}).
		Where(squirrel.Gt{"confirm_deadline": now}).
		Where(squirrel.Expr("created_at + (confirm_deadline - created_at) * ? <= ?", fraction, now)).
		Where(squirrel.Expr(
			"NOT EXISTS (SELECT 1 FROM notifications n WHERE n.related_id = reservations.id AND n.type IN (?, ?))",
			string(domain.NotificationApprovalReminder), string(domain.NotificationPaymentReminder),
		)).
		OrderBy("confirm_deadline ASC").
		Limit(uint64(limit)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListReminderDue - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListReminderDue - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// ListExpired reservations still awaiting confirmation after their deadline
func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"status": domain.StatusStrings(domain.AwaitingConfirmationStatuses)}).
		Where(squirrel.LtOrEq{"confirm_deadline": now}).
		OrderBy("confirm_deadline ASC").
		Limit(uint64(limit)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListExpired - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListExpired - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// StatusUpdate fields written together with a status transition, nil fields are left untouched
type StatusUpdate struct {
	To                 domain.ReservationStatus
	PaymentRef         *string
	Captured           *domain.Money
	Refunded           *domain.Money
	RefundRef          *string
	CancellationReason *string
	CanceledBy         *domain.CancellationActor
	CanceledAt         *time.Time
}

// Transition moves the reservation from expected status and version to upd.To.
// Zero affected rows means a concurrent writer won and yields ErrStatusChanged.
func (r *Repository) Transition(ctx context.Context, res *domain.Reservation, upd StatusUpdate) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Update(table).
		Set("status", upd.To).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": res.ID}).
		Where(squirrel.Eq{"status": res.Status}).
		Where(squirrel.Eq{"version": res.Version})

	if upd.PaymentRef != nil {
		builder = builder.Set("payment_ref", *upd.PaymentRef)
	}
	if upd.Captured != nil {
		builder = builder.Set("captured_cents", *upd.Captured)
	}
	if upd.Refunded != nil {
		builder = builder.Set("refunded_cents", *upd.Refunded)
	}
	if upd.RefundRef != nil {
		builder = builder.Set("refund_ref", *upd.RefundRef)
	}
	if upd.CancellationReason != nil {
		builder = builder.Set("cancellation_reason", *upd.CancellationReason)
	}
	if upd.CanceledBy != nil {
		builder = builder.Set("canceled_by", *upd.CanceledBy)
	}
	if upd.CanceledAt != nil {
		builder = builder.Set("canceled_at", *upd.CanceledAt)
	}

	query, args, err := builder.Suffix("RETURNING version, updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("%w: Transition - build update query: %v", ErrBuildQuery, err)
	}

	var version int
	var updatedAt time.Time
	err = executor.QueryRowContext(ctx, query, args...).Scan(&version, &updatedAt)
	if err == sql.ErrNoRows {
		return ErrStatusChanged
	}
	if err != nil {
		if pqerr.IsExclusionViolation(err) {
			return ErrOverlap
		}
		if pqerr.IsCheckViolation(err) && pqerr.Constraint(err) == "reservations_refund_le_captured" {
			return ErrRefundExceedsCaptured
		}
		return fmt.Errorf("%w: Transition - execute update: %v", ErrExecQuery, err)
	}

	res.Status = upd.To
	res.Version = version
	res.UpdatedAt = updatedAt
	if upd.PaymentRef != nil {
		res.PaymentRef = upd.PaymentRef
	}
	if upd.Captured != nil {
		res.Captured = *upd.Captured
	}
	if upd.Refunded != nil {
		res.Refunded = *upd.Refunded
	}
	if upd.RefundRef != nil {
		res.RefundRef = upd.RefundRef
	}
	if upd.CancellationReason != nil {
		res.CancellationReason = upd.CancellationReason
	}
	if upd.CanceledBy != nil {
		res.CanceledBy = upd.CanceledBy
	}
	if upd.CanceledAt != nil {
		res.CanceledAt = upd.CanceledAt
	}

	return nil
}

// SetPaymentRef records the authorization reference without changing status
func (r *Repository) SetPaymentRef(ctx context.Context, res *domain.Reservation, paymentRef string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(table).
		Set("payment_ref", paymentRef).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": res.ID}).
		Where(squirrel.Eq{"version": res.Version}).
		Suffix("RETURNING version").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: SetPaymentRef - build update query: %v", ErrBuildQuery, err)
	}

	var version int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&version)
	if err == sql.ErrNoRows {
		return ErrStatusChanged
	}
	if err != nil {
		return fmt.Errorf("%w: SetPaymentRef - execute update: %v", ErrExecQuery, err)
	}

	res.PaymentRef = &paymentRef
	res.Version = version
	return nil
}

// ApplyExtension moves ends_at from oldEnd to the new end and adds the delta amounts.
// Guarded by version, committed status and the old end so a replay cannot apply twice.
func (r *Repository) ApplyExtension(ctx context.Context, res *domain.Reservation, newEnd time.Time, newPrice domain.PriceBreakdown, captured domain.Money, reviewDeadline, now time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(table).
		Set("ends_at", newEnd).
		Set("hours", newPrice.Hours).
		Set("owner_gross_cents", newPrice.OwnerGross).
		Set("platform_fee_cents", newPrice.PlatformFee).
		Set("owner_net_cents", newPrice.OwnerNet).
		Set("subtotal_cents", newPrice.Subtotal).
		Set("service_fee_cents", newPrice.ServiceFee).
		Set("addon_fee_cents", newPrice.AddOnFee).
		Set("total_cents", newPrice.Total).
		Set("captured_cents", captured).
		Set("extension_count", squirrel.Expr("extension_count + 1")).
		Set("last_extended_at", now).
		Set("review_deadline", reviewDeadline).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": res.ID}).
		Where(squirrel.Eq{"version": res.Version}).
		Where(squirrel.Eq{"ends_at": res.Interval.End}).
		Where(squirrel.Eq{"status": domain.StatusStrings(domain.CommittedStatuses)}).
		Suffix("RETURNING version, updated_at").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: ApplyExtension - build update query: %v", ErrBuildQuery, err)
	}

	var version int
	var updatedAt time.Time
	err = executor.QueryRowContext(ctx, query, args...).Scan(&version, &updatedAt)
	if err == sql.ErrNoRows {
		return ErrStatusChanged
	}
	if err != nil {
		if pqerr.IsExclusionViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("%w: ApplyExtension - execute update: %v", ErrExecQuery, err)
	}

	res.Interval = res.Interval.Extend(newEnd)
	res.Price = newPrice
	res.Captured = captured
	res.ExtensionCount++
	res.LastExtendedAt = &now
	res.ReviewDeadline = reviewDeadline
	res.Version = version
	res.UpdatedAt = updatedAt
	return nil
}

// InsertExtension appends an entry to the extension history
func (r *Repository) InsertExtension(ctx context.Context, ext *domain.ReservationExtension) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if ext.ID == uuid.Nil {
		ext.ID = uuid.New()
	}

	query, args, err := psqlbuilder.Insert("reservation_extensions").
		Columns("id", "reservation_id", "old_ends_at", "new_ends_at", "amount_cents", "payment_ref").
		Values(ext.ID, ext.ReservationID, ext.OldEnd, ext.NewEnd, ext.Amount, ext.PaymentRef).
		Suffix("RETURNING created_at").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: InsertExtension - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&ext.CreatedAt); err != nil {
		return fmt.Errorf("%w: InsertExtension - execute insert: %v", ErrExecQuery, err)
	}
	return nil
}

// CompleteEnded flips committed reservations whose interval has ended to completed
func (r *Repository) CompleteEnded(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(table).
		Set("status", domain.StatusCompleted).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Expr(
			"id IN (SELECT id FROM reservations WHERE status IN (?, ?) AND ends_at <= ? ORDER BY ends_at LIMIT ?)",
			domain.StatusActive, domain.StatusPaid, now, limit,
		)).
		Where(squirrel.Eq{"status": domain.StatusStrings(domain.CommittedStatuses)}).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: CompleteEnded - build update query: %v", ErrBuildQuery, err)
	}

	return r.queryIDs(ctx, executor, query, args, "CompleteEnded")
}

// LinkGuest assigns unreconciled guest reservations matching the email or phone key to userID.
// Already linked rows are excluded by claimant_id IS NULL, so re-running links nothing new.
func (r *Repository) LinkGuest(ctx context.Context, userID uuid.UUID, normalizedEmail, phoneSuffix string) ([]uuid.UUID, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	match := squirrel.Or{}
	if normalizedEmail != "" {
		match = append(match, squirrel.Eq{"guest_email_normalized": normalizedEmail})
	}
	if phoneSuffix != "" {
		match = append(match, squirrel.Eq{"guest_phone_suffix": phoneSuffix})
	}
	if len(match) == 0 {
		return nil, nil
	}

	query, args, err := psqlbuilder.Update(table).
		Set("claimant_id", userID).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"claimant_id": nil}).
		Where(match).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: LinkGuest - build update query: %v", ErrBuildQuery, err)
	}

	return r.queryIDs(ctx, executor, query, args, "LinkGuest")
}

func (r *Repository) queryIDs(ctx context.Context, executor DBExecutor, query string, args []interface{}, op string) ([]uuid.UUID, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s - execute query: %v", ErrExecQuery, op, err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %s - scan id: %v", ErrScanRow, op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s - rows iteration: %v", ErrScanRow, op, err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var (
		res                                         domain.Reservation
		claimantID                                  uuid.NullUUID
		guestName, guestEmail, guestPhone, guestVeh sql.NullString
		start, end                                  time.Time
	)

	err := row.Scan(
		&res.ID,
		&res.SpotID,
		&res.OwnerID,
		&claimantID,
		&guestName,
		&guestEmail,
		&guestPhone,
		&guestVeh,
		&start,
		&end,
		&res.Status,
		&res.Price.HourlyRate,
		&res.Price.ClaimantRate,
		&res.Price.AddOnRate,
		&res.Price.Hours,
		&res.Price.OwnerGross,
		&res.Price.PlatformFee,
		&res.Price.OwnerNet,
		&res.Price.Subtotal,
		&res.Price.ServiceFee,
		&res.Price.AddOnFee,
		&res.Price.Total,
		&res.Captured,
		&res.Refunded,
		&res.EVCharging,
		&res.PaymentRef,
		&res.PaymentMethodRef,
		&res.RefundRef,
		&res.CancellationReason,
		&res.CanceledBy,
		&res.CanceledAt,
		&res.ExtensionCount,
		&res.LastExtendedAt,
		&res.ConfirmDeadline,
		&res.ReviewDeadline,
		&res.Version,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if claimantID.Valid {
		id := claimantID.UUID
		res.ClaimantID = &id
	}
	if guestName.Valid {
		res.Guest = &domain.GuestIdentity{
			FullName: guestName.String,
			Vehicle:  guestVeh.String,
		}
		if guestEmail.Valid {
			res.Guest.Email = &guestEmail.String
		}
		if guestPhone.Valid {
			res.Guest.Phone = &guestPhone.String
		}
	}
	res.Interval = domain.Interval{Start: start.UTC(), End: end.UTC()}

	return &res, nil
}

func scanReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	result := make([]*domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan reservation: %v", ErrScanRow, err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %v", ErrScanRow, err)
	}
	return result, nil
}
