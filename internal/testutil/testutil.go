package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/taskboard/internal/auth"
	"github.com/hugh/taskboard/internal/database"
	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates a migrated in-memory SQLite database with the roles seeded
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := database.SeedRoles(db); err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}

	return db
}

// CreateTestOrg creates an organization with the default workflow states
func CreateTestOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:     "Test Organization",
		Slug:     "test-org-" + uuid.New().String()[:8],
		IsActive: true,
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	if err := database.SeedTodoStates(db, org.ID); err != nil {
		t.Fatalf("failed to seed todo states: %v", err)
	}

	return org
}

// CreateTestUser creates an active user with the given role in org
func CreateTestUser(t *testing.T, db *gorm.DB, org *models.Organization, role string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	r, err := database.RoleByName(db, role)
	if err != nil {
		t.Fatalf("failed to load role %s: %v", role, err)
	}

	user := &models.User{
		Email:          "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash:   hash,
		FirstName:      "Test",
		LastName:       role,
		OrganizationID: org.ID,
		RoleID:         r.ID,
		IsActive:       true,
		Preferences:    datatypes.NewJSONType(models.Preferences{}),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	user.Organization = org
	user.Role = r
	return user
}

// StateByName returns one of the organization's seeded states
func StateByName(t *testing.T, db *gorm.DB, orgID uint, name string) *models.TodoState {
	t.Helper()

	var state models.TodoState
	if err := db.Where("organization_id = ? AND name = ?", orgID, name).First(&state).Error; err != nil {
		t.Fatalf("failed to load state %s: %v", name, err)
	}
	return &state
}

// CreateTestProject creates a project owned by user
func CreateTestProject(t *testing.T, db *gorm.DB, user *models.User, name string) *models.Project {
	t.Helper()

	project := &models.Project{
		OrganizationID: user.OrganizationID,
		Name:           name,
		CreatedByID:    user.ID,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return project
}

// CreateTestTask creates a top-level task in the organization's default state
func CreateTestTask(t *testing.T, db *gorm.DB, user *models.User, title string, priority models.Priority) *models.Task {
	t.Helper()

	var state models.TodoState
	if err := db.Where("organization_id = ? AND is_default = ?", user.OrganizationID, true).First(&state).Error; err != nil {
		t.Fatalf("failed to load default state: %v", err)
	}

	task := &models.Task{
		OrganizationID: user.OrganizationID,
		Title:          title,
		Priority:       priority,
		TodoStateID:    state.ID,
		CreatedByID:    user.ID,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

// Identity builds the caller identity for user
func Identity(user *models.User) domain.Identity {
	return domain.Identity{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Role:           user.RoleName(),
	}
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.OrganizationID, user.Email, user.RoleName())
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Org        *models.Organization
	User       *models.User // Admin
	Token      string
}

// NewTestContext creates a complete test setup with DB, org, admin user, and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	org := CreateTestOrg(t, db)
	user := CreateTestUser(t, db, org, domain.RoleAdmin)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Org:        org,
		User:       user,
		Token:      token,
	}
}

// AddUser creates another member of the setup's organization and returns it with a token
func (ts *TestSetup) AddUser(t *testing.T, role string) (*models.User, string) {
	t.Helper()
	user := CreateTestUser(t, ts.DB, ts.Org, role)
	return user, GenerateTestToken(t, ts.JWTService, user)
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
