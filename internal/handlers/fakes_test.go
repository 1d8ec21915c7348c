package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/bullwork-fleet/apiserver/internal/services"
	"github.com/bullwork-fleet/apiserver/internal/store"
	"github.com/bullwork-fleet/apiserver/types"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.PasswordHash = ""
	return user, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]types.User, 0, len(f.users))
	for _, user := range f.users {
		user.PasswordHash = ""
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

// fakeVehicleRepo is an in-memory services.VehicleRepository. It
// resolves assignee summaries against the paired user repo the way the
// SQL layer's join does.
type fakeVehicleRepo struct {
	mu          sync.Mutex
	nextID      int
	vehicles    map[int]types.Vehicle
	assignments map[int]int
	users       *fakeUserRepo
}

func newFakeVehicleRepo(users *fakeUserRepo) *fakeVehicleRepo {
	return &fakeVehicleRepo{
		nextID:      1,
		vehicles:    make(map[int]types.Vehicle),
		assignments: make(map[int]int),
		users:       users,
	}
}

func (f *fakeVehicleRepo) populate(vehicle types.Vehicle) types.Vehicle {
	userID, ok := f.assignments[vehicle.ID]
	if !ok {
		vehicle.AssignedTo = nil
		return vehicle
	}
	user, err := f.users.GetByID(context.Background(), userID)
	if err != nil {
		vehicle.AssignedTo = nil
		return vehicle
	}
	summary := user.Summary()
	vehicle.AssignedTo = &summary
	return vehicle
}

func (f *fakeVehicleRepo) List(ctx context.Context) ([]types.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vehicles := make([]types.Vehicle, 0, len(f.vehicles))
	for _, vehicle := range f.vehicles {
		vehicles = append(vehicles, f.populate(vehicle))
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles, nil
}

func (f *fakeVehicleRepo) ListAssignedTo(ctx context.Context, userID int) ([]types.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vehicles := make([]types.Vehicle, 0)
	for id, vehicle := range f.vehicles {
		if f.assignments[id] == userID {
			vehicles = append(vehicles, f.populate(vehicle))
		}
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles, nil
}

func (f *fakeVehicleRepo) Get(ctx context.Context, id int) (types.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vehicle, ok := f.vehicles[id]
	if !ok {
		return types.Vehicle{}, store.ErrNotFound
	}
	return f.populate(vehicle), nil
}

func (f *fakeVehicleRepo) GetByNumber(ctx context.Context, number string) (types.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, vehicle := range f.vehicles {
		if vehicle.Number == number {
			return f.populate(vehicle), nil
		}
	}
	return types.Vehicle{}, store.ErrNotFound
}

func (f *fakeVehicleRepo) Create(ctx context.Context, vehicle types.Vehicle) (types.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vehicle.ID = f.nextID
	f.nextID++
	f.vehicles[vehicle.ID] = vehicle
	return vehicle, nil
}

func (f *fakeVehicleRepo) Update(ctx context.Context, vehicle types.Vehicle) (types.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.vehicles[vehicle.ID]
	if !ok {
		return types.Vehicle{}, store.ErrNotFound
	}
	current.Name = vehicle.Name
	current.Number = vehicle.Number
	f.vehicles[vehicle.ID] = current
	return current, nil
}

func (f *fakeVehicleRepo) Assign(ctx context.Context, vehicleID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vehicles[vehicleID]; !ok {
		return store.ErrNotFound
	}
	f.assignments[vehicleID] = userID
	return nil
}

func (f *fakeVehicleRepo) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vehicles[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.vehicles, id)
	delete(f.assignments, id)
	return nil
}

func (f *fakeVehicleRepo) assignedUser(vehicleID int) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.assignments[vehicleID]
	return userID, ok
}

// testEnv bundles the fakes and a fully wired router.
type testEnv struct {
	users    *fakeUserRepo
	vehicles *fakeVehicleRepo
	router   *chi.Mux
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	vehicles := newFakeVehicleRepo(users)

	userService := services.NewUserService(users)
	vehicleService := services.NewVehicleService(vehicles, nil, nil)
	telemetryService := services.NewTelemetryService(nil, nil)

	authMiddleware := RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, userService, testSecret)
	})
	router.Route("/api/users", func(r chi.Router) {
		UserRouter(r, userService, authMiddleware)
	})
	router.Route("/api/vehicles", func(r chi.Router) {
		VehicleRouter(r, vehicleService, userService, nil, authMiddleware)
	})
	router.Route("/api/telemetry", func(r chi.Router) {
		TelemetryRouter(r, telemetryService, authMiddleware)
	})

	return &testEnv{users: users, vehicles: vehicles, router: router}
}

func (e *testEnv) addUser(t *testing.T, name, email string, role types.Role) types.User {
	t.Helper()
	return e.addUserWithPassword(t, name, email, "secret123", role)
}

func (e *testEnv) addUserWithPassword(t *testing.T, name, email, password string, role types.Role) types.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := e.users.Create(context.Background(), types.User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) tokenFor(t *testing.T, user types.User) string {
	t.Helper()
	token, err := issueToken(user.ID, user.Role, []byte(testSecret), defaultTokenTTL)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func authHeader(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
