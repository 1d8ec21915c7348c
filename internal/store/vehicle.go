package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bullwork-fleet/apiserver/types"
)

// VehicleRepository handles persistence for vehicles. Reads resolve the
// assigned user with an explicit LEFT JOIN rather than a second query.
type VehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleSelect = `
	SELECT v.id, v.name, v.number, v.created_at, v.updated_at,
		u.id, u.name, u.email
	FROM vehicles v
	LEFT JOIN users u ON u.id = v.assigned_to`

func scanVehicle(scanner interface{ Scan(...any) error }) (types.Vehicle, error) {
	var vehicle types.Vehicle
	var assigneeID sql.NullInt64
	var assigneeName, assigneeEmail sql.NullString
	if err := scanner.Scan(
		&vehicle.ID,
		&vehicle.Name,
		&vehicle.Number,
		&vehicle.CreatedAt,
		&vehicle.UpdatedAt,
		&assigneeID,
		&assigneeName,
		&assigneeEmail,
	); err != nil {
		return types.Vehicle{}, err
	}
	if assigneeID.Valid {
		vehicle.AssignedTo = &types.UserSummary{
			ID:    int(assigneeID.Int64),
			Name:  assigneeName.String,
			Email: assigneeEmail.String,
		}
	}
	return vehicle, nil
}

func (r *VehicleRepository) List(ctx context.Context) ([]types.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, vehicleSelect+` ORDER BY v.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := make([]types.Vehicle, 0)
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return vehicles, nil
}

// ListAssignedTo returns the vehicles whose assignment equals userID.
func (r *VehicleRepository) ListAssignedTo(ctx context.Context, userID int) ([]types.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, vehicleSelect+` WHERE v.assigned_to = $1 ORDER BY v.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := make([]types.Vehicle, 0)
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return vehicles, nil
}

func (r *VehicleRepository) Get(ctx context.Context, id int) (types.Vehicle, error) {
	vehicle, err := scanVehicle(r.db.QueryRowContext(ctx, vehicleSelect+` WHERE v.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Vehicle{}, ErrNotFound
		}
		return types.Vehicle{}, err
	}
	return vehicle, nil
}

// GetByNumber is the uniqueness lookup used before create/update.
func (r *VehicleRepository) GetByNumber(ctx context.Context, number string) (types.Vehicle, error) {
	vehicle, err := scanVehicle(r.db.QueryRowContext(ctx, vehicleSelect+` WHERE v.number = $1`, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Vehicle{}, ErrNotFound
		}
		return types.Vehicle{}, err
	}
	return vehicle, nil
}

func (r *VehicleRepository) Create(ctx context.Context, vehicle types.Vehicle) (types.Vehicle, error) {
	now := time.Now()
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now

	const query = `
		INSERT INTO vehicles (name, number, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		vehicle.Name,
		vehicle.Number,
		vehicle.CreatedAt,
		vehicle.UpdatedAt,
	).Scan(&vehicle.ID); err != nil {
		return types.Vehicle{}, err
	}
	return vehicle, nil
}

func (r *VehicleRepository) Update(ctx context.Context, vehicle types.Vehicle) (types.Vehicle, error) {
	vehicle.UpdatedAt = time.Now()

	const query = `
		UPDATE vehicles
		SET name = $1,
			number = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(
		ctx,
		query,
		vehicle.Name,
		vehicle.Number,
		vehicle.UpdatedAt,
		vehicle.ID,
	)
	if err != nil {
		return types.Vehicle{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Vehicle{}, err
	}
	if affected == 0 {
		return types.Vehicle{}, ErrNotFound
	}
	return vehicle, nil
}

// Assign sets the vehicle's assigned user, overwriting any prior value.
func (r *VehicleRepository) Assign(ctx context.Context, vehicleID, userID int) error {
	const query = `
		UPDATE vehicles
		SET assigned_to = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, userID, time.Now(), vehicleID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VehicleRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM vehicles WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
