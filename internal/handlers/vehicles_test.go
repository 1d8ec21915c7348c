package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/bullwork-fleet/apiserver/types"
)

func (e *testEnv) addVehicle(t *testing.T, name, number string) types.Vehicle {
	t.Helper()
	vehicle, err := e.vehicles.Create(context.Background(), types.Vehicle{Name: name, Number: number})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return vehicle
}

func TestCreateVehicle(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)

	rec := doJSON(t, env, http.MethodPost, "/api/vehicles", token,
		`{"name":"Tractor 9","number":"BW-009"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var vehicle types.Vehicle
	if err := json.Unmarshal(rec.Body.Bytes(), &vehicle); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if vehicle.ID == 0 || vehicle.Number != "BW-009" {
		t.Errorf("unexpected vehicle payload: %+v", vehicle)
	}
	if vehicle.AssignedTo != nil {
		t.Error("a fresh vehicle must be unassigned")
	}
}

func TestCreateVehicleDuplicateNumber(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)
	env.addVehicle(t, "Tractor 9", "BW-009")

	rec := doJSON(t, env, http.MethodPost, "/api/vehicles", token,
		`{"name":"Other","number":"BW-009"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate number, got %d: %s", rec.Code, rec.Body.String())
	}

	vehicles, err := env.vehicles.List(context.Background())
	if err != nil {
		t.Fatalf("list vehicles: %v", err)
	}
	if len(vehicles) != 1 {
		t.Errorf("duplicate create must not persist, have %d vehicles", len(vehicles))
	}
}

func TestCreateVehicleValidation(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)

	for _, body := range []string{`{"name":"Tractor"}`, `{"number":"BW-001"}`, `{}`} {
		rec := doJSON(t, env, http.MethodPost, "/api/vehicles", token, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestUpdateVehicle(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)
	vehicle := env.addVehicle(t, "Tractor 9", "BW-009")

	rec := doJSON(t, env, http.MethodPut, fmt.Sprintf("/api/vehicles/%d", vehicle.ID), token,
		`{"name":"Tractor 9B"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp VehicleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Vehicle.Name != "Tractor 9B" {
		t.Errorf("name not updated: %+v", resp.Vehicle)
	}
	if resp.Vehicle.Number != "BW-009" {
		t.Errorf("omitted number must be preserved: %+v", resp.Vehicle)
	}
}

func TestUpdateVehicleDuplicateNumber(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)
	env.addVehicle(t, "Tractor 1", "BW-001")
	second := env.addVehicle(t, "Tractor 2", "BW-002")

	rec := doJSON(t, env, http.MethodPut, fmt.Sprintf("/api/vehicles/%d", second.ID), token,
		`{"number":"BW-001"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := env.vehicles.Get(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("get vehicle: %v", err)
	}
	if got.Number != "BW-002" {
		t.Errorf("failed update must not change the number, got %q", got.Number)
	}
}

func TestUpdateVehicleNotFound(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)

	rec := doJSON(t, env, http.MethodPut, "/api/vehicles/42", token, `{"name":"Ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteVehicle(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)
	vehicle := env.addVehicle(t, "Tractor 9", "BW-009")

	rec := doJSON(t, env, http.MethodDelete, fmt.Sprintf("/api/vehicles/%d", vehicle.ID), token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := env.vehicles.Get(context.Background(), vehicle.ID); err == nil {
		t.Error("vehicle still present after delete")
	}

	again := doJSON(t, env, http.MethodDelete, fmt.Sprintf("/api/vehicles/%d", vehicle.ID), token, "")
	if again.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", again.Code)
	}
}

func TestAssignVehicle(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	driver := env.addUser(t, "Bob", "bob@example.com", types.RoleUser)
	token := env.tokenFor(t, admin)
	vehicle := env.addVehicle(t, "Tractor 9", "BW-009")

	rec := doJSON(t, env, http.MethodPut, fmt.Sprintf("/api/vehicles/%d/assign", vehicle.ID), token,
		fmt.Sprintf(`{"userId":%d}`, driver.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp VehicleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Vehicle.AssignedTo == nil {
		t.Fatal("assignedTo must be populated after assignment")
	}
	if resp.Vehicle.AssignedTo.ID != driver.ID || resp.Vehicle.AssignedTo.Email != driver.Email {
		t.Errorf("unexpected assignee: %+v", resp.Vehicle.AssignedTo)
	}
}

func TestAssignVehicleMissingUser(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)
	vehicle := env.addVehicle(t, "Tractor 9", "BW-009")

	rec := doJSON(t, env, http.MethodPut, fmt.Sprintf("/api/vehicles/%d/assign", vehicle.ID), token,
		`{"userId":99}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, assigned := env.vehicles.assignedUser(vehicle.ID); assigned {
		t.Error("failed assignment must leave the vehicle unassigned")
	}
}

func TestAssignVehicleMissingVehicle(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	driver := env.addUser(t, "Bob", "bob@example.com", types.RoleUser)
	token := env.tokenFor(t, admin)

	rec := doJSON(t, env, http.MethodPut, "/api/vehicles/42/assign", token,
		fmt.Sprintf(`{"userId":%d}`, driver.ID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAssignVehicleRequiresUserID(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)
	vehicle := env.addVehicle(t, "Tractor 9", "BW-009")

	rec := doJSON(t, env, http.MethodPut, fmt.Sprintf("/api/vehicles/%d/assign", vehicle.ID), token, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// /my returns exactly the caller's vehicles and requires the user role.
func TestMyVehicles(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	bob := env.addUser(t, "Bob", "bob@example.com", types.RoleUser)
	carol := env.addUser(t, "Carol", "carol@example.com", types.RoleUser)
	adminToken := env.tokenFor(t, admin)

	mine := env.addVehicle(t, "Tractor 1", "BW-001")
	other := env.addVehicle(t, "Tractor 2", "BW-002")
	env.addVehicle(t, "Tractor 3", "BW-003")

	if err := env.vehicles.Assign(context.Background(), mine.ID, bob.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := env.vehicles.Assign(context.Background(), other.ID, carol.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	rec := doJSON(t, env, http.MethodGet, "/api/vehicles/my", env.tokenFor(t, bob), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var vehicles []types.Vehicle
	if err := json.Unmarshal(rec.Body.Bytes(), &vehicles); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(vehicles) != 1 || vehicles[0].ID != mine.ID {
		t.Errorf("expected exactly bob's vehicle, got %+v", vehicles)
	}

	// Admins administer the full listing instead; /my is for drivers.
	if rec := doJSON(t, env, http.MethodGet, "/api/vehicles/my", adminToken, ""); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for admin on /my, got %d", rec.Code)
	}
}

func TestListVehiclesPopulatesAssignee(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	bob := env.addUser(t, "Bob", "bob@example.com", types.RoleUser)
	token := env.tokenFor(t, admin)

	assigned := env.addVehicle(t, "Tractor 1", "BW-001")
	env.addVehicle(t, "Tractor 2", "BW-002")
	if err := env.vehicles.Assign(context.Background(), assigned.ID, bob.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	rec := doJSON(t, env, http.MethodGet, "/api/vehicles", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var vehicles []types.Vehicle
	if err := json.Unmarshal(rec.Body.Bytes(), &vehicles); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(vehicles))
	}
	for _, vehicle := range vehicles {
		if vehicle.ID == assigned.ID {
			if vehicle.AssignedTo == nil || vehicle.AssignedTo.Name != "Bob" {
				t.Errorf("assignee not populated: %+v", vehicle.AssignedTo)
			}
		} else if vehicle.AssignedTo != nil {
			t.Errorf("unassigned vehicle carries an assignee: %+v", vehicle)
		}
	}
}

func TestVehicleIDMustBeNumeric(t *testing.T) {
	env := newTestEnv()
	admin := env.addUser(t, "Alice", "alice@example.com", types.RoleAdmin)
	token := env.tokenFor(t, admin)

	rec := doJSON(t, env, http.MethodPut, "/api/vehicles/abc", token, `{"name":"X"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}
