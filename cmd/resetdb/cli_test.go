package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resetdb/internal/eraser"
)

func TestErase_NoSelectionIsUsageError(t *testing.T) {
	configFile, dbFile := fixture(t)

	_, _, err := execute(t, nil, "erase", "--force", "--config", configFile)
	require.ErrorIs(t, err, eraser.ErrNoTargets)
	assert.Equal(t, 3, countRows(t, dbFile, "accounts_user"))
	assert.Equal(t, 4, countRows(t, dbFile, "shop_order"))
}

func TestErase_ForceKeepsAdmins(t *testing.T) {
	configFile, dbFile := fixture(t)

	stdout, stderr, err := execute(t, nil, "erase", "--config", configFile,
		"--model", "shop.Order", "--model", "shop.Customer", "--model", "accounts.User", "--force")
	require.NoError(t, err, stderr)

	assert.Equal(t, 0, countRows(t, dbFile, "shop_order"))
	assert.Equal(t, 0, countRows(t, dbFile, "shop_customer"))
	assert.Equal(t, 2, countRows(t, dbFile, "accounts_user"))

	assert.Contains(t, stdout, "Deleted 4 record(s) from shop.Order")
	assert.Contains(t, stdout, "Deleted 2 record(s) from shop.Customer")
	assert.Contains(t, stdout, "Keeping 2 admin user(s)")
	assert.Contains(t, stdout, "Deleted 1 record(s) from accounts.User")
	assert.Contains(t, stdout, "Deleted 7 record(s) in total.")

	order := strings.Index(stdout, "shop.Order")
	customer := strings.Index(stdout, "shop.Customer")
	user := strings.Index(stdout, "from accounts.User")
	assert.True(t, order < customer && customer < user, "deletion order:\n%s", stdout)
}

func TestErase_AllSkipsProtected(t *testing.T) {
	configFile, dbFile := fixture(t)

	stdout, stderr, err := execute(t, nil, "erase", "--config", configFile, "--all", "--force")
	require.NoError(t, err, stderr)

	assert.Equal(t, 0, countRows(t, dbFile, "shop_order"))
	assert.Equal(t, 2, countRows(t, dbFile, "accounts_user"))
	assert.Equal(t, 1, countRows(t, dbFile, "auth_group"), "auth is protected")
	assert.Equal(t, 1, countRows(t, dbFile, "django_migrations"), "excluded from the registry")
	assert.Equal(t, 1, countRows(t, dbFile, "django_content_type"), "contenttypes is protected")
	assert.Equal(t, 1, countRows(t, dbFile, "django_session"), "sessions is protected")
	assert.Equal(t, 1, countRows(t, dbFile, "django_admin_log"), "admin is protected")
	assert.NotContains(t, stdout, "django.")
	assert.NotContains(t, stderr, "Failed to erase")
}

func TestErase_AllWithoutAdminsRemovesEveryUser(t *testing.T) {
	configFile, dbFile := fixture(t)
	db, err := sql.Open("sqlite3", dbFile)
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM django_admin_log")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, stderr, err := execute(t, nil, "erase", "--config", configFile, "--all", "--keep-admin=false", "--force")
	require.NoError(t, err, stderr)

	assert.Equal(t, 0, countRows(t, dbFile, "accounts_user"))
	assert.Equal(t, 1, countRows(t, dbFile, "django_session"))
}

func TestErase_FrameworkTablesByApp(t *testing.T) {
	configFile, dbFile := fixture(t)

	stdout, stderr, err := execute(t, nil, "erase", "--config", configFile, "--app", "sessions", "--force")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "Deleted 1 record(s) from sessions.Session")
	assert.Equal(t, 0, countRows(t, dbFile, "django_session"))
	assert.Equal(t, 1, countRows(t, dbFile, "django_admin_log"))
}

func TestErase_Declined(t *testing.T) {
	configFile, dbFile := fixture(t)

	stdout, _, err := execute(t, strings.NewReader("n\n"), "erase", "--config", configFile, "--all")
	require.NoError(t, err)

	assert.Contains(t, stdout, "[y/N]")
	assert.Contains(t, stdout, "Operation cancelled.")
	assert.Equal(t, 3, countRows(t, dbFile, "accounts_user"))
	assert.Equal(t, 2, countRows(t, dbFile, "shop_customer"))
	assert.Equal(t, 4, countRows(t, dbFile, "shop_order"))
}

func TestErase_Confirmed(t *testing.T) {
	configFile, dbFile := fixture(t)

	stdout, stderr, err := execute(t, strings.NewReader("yes\n"), "erase", "--config", configFile, "--app", "shop")
	require.NoError(t, err)

	assert.Contains(t, stderr, "The following models will be erased:")
	assert.Contains(t, stdout, "  - shop.Customer")
	assert.Equal(t, 0, countRows(t, dbFile, "shop_order"))
	assert.Equal(t, 3, countRows(t, dbFile, "accounts_user"))
}

func TestErase_UnknownTargetsWarn(t *testing.T) {
	configFile, _ := fixture(t)

	stdout, stderr, err := execute(t, nil, "erase", "--config", configFile, "--app", "inventory", "--model", "Order", "--force")
	require.NoError(t, err)
	assert.Contains(t, stderr, `App "inventory" not found, skipping`)
	assert.Contains(t, stderr, `Invalid model label "Order"`)
	assert.Contains(t, stdout, "Nothing to erase.")
}

func TestErase_ForeignKeyFailureContinues(t *testing.T) {
	configFile, dbFile := fixture(t)

	// Customer rows are still referenced by orders, which are not targeted.
	stdout, stderr, err := execute(t, nil, "erase", "--config", configFile,
		"--model", "shop.Customer", "--model", "auth.Group", "--force")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Failed to erase shop.Customer")
	assert.Contains(t, stdout, "Deleted 1 record(s) from auth.Group")
	assert.Equal(t, 2, countRows(t, dbFile, "shop_customer"))
	assert.Equal(t, 0, countRows(t, dbFile, "auth_group"))
}

func TestErase_DryRun(t *testing.T) {
	configFile, dbFile := fixture(t)

	stdout, _, err := execute(t, nil, "erase", "--config", configFile, "--all", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Would delete 4 record(s) from shop.Order")
	assert.Contains(t, stdout, "Would delete 1 record(s) from accounts.User")
	assert.Contains(t, stdout, "Dry run: no records were deleted.")
	assert.Equal(t, 4, countRows(t, dbFile, "shop_order"))
	assert.Equal(t, 3, countRows(t, dbFile, "accounts_user"))
}

func TestErase_AuditTrail(t *testing.T) {
	configFile, dbFile := fixture(t)
	auditFile := filepath.Join(filepath.Dir(dbFile), "audit.jsonl")

	f, err := os.OpenFile(configFile, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("logging:\n  audit_file: " + auditFile + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, stderr, err := execute(t, nil, "erase", "--config", configFile, "--app", "shop", "--force")
	require.NoError(t, err, stderr)

	data, err := os.Open(auditFile)
	require.NoError(t, err)
	defer data.Close()

	var events []string
	runIDs := map[string]bool{}
	scanner := bufio.NewScanner(data)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		events = append(events, line["event"].(string))
		runIDs[line["run_id"].(string)] = true
	}
	assert.Equal(t, []string{"erase_start", "collection_erased", "collection_erased", "erase_complete"}, events)
	assert.Len(t, runIDs, 1, "one run id per run")
}

func TestPlan_ShowsPhases(t *testing.T) {
	configFile, dbFile := fixture(t)

	stdout, _, err := execute(t, nil, "plan", "--config", configFile, "--all")
	require.NoError(t, err)

	for _, want := range []string{"Erase plan", "shop.Order", "shop.Customer", "accounts.User", "is_superuser = true"} {
		assert.Contains(t, stdout, want)
	}
	assert.Less(t, strings.Index(stdout, "shop.Order"), strings.Index(stdout, "shop.Customer"))
	assert.Less(t, strings.Index(stdout, "shop.Customer"), strings.Index(stdout, "accounts.User"))
	assert.NotContains(t, stdout, "auth.Group")
	assert.Equal(t, 4, countRows(t, dbFile, "shop_order"))
}

func TestPlan_NoSelection(t *testing.T) {
	configFile, _ := fixture(t)

	_, _, err := execute(t, nil, "plan", "--config", configFile)
	assert.ErrorIs(t, err, eraser.ErrNoTargets)
}

func TestModels(t *testing.T) {
	configFile, _ := fixture(t)

	stdout, _, err := execute(t, nil, "models", "--config", configFile)
	require.NoError(t, err)

	assert.Contains(t, stdout, "7 model(s)")
	assert.Contains(t, stdout, "auth (protected)")
	assert.Contains(t, stdout, "sessions (protected)")
	assert.Contains(t, stdout, "admin (protected)")
	assert.Contains(t, stdout, "content_type_id -> contenttypes.ContentType")
	assert.NotContains(t, stdout, "django.")
	assert.Contains(t, stdout, "customer_id -> shop.Customer")
	assert.Contains(t, stdout, "User model accounts.User, admin signal: is_superuser = true")
	assert.NotContains(t, stdout, "django_migrations")
}

func TestErase_WithManifest(t *testing.T) {
	configFile, dbFile := fixture(t)

	stdout, stderr, err := execute(t, nil, "erase", "--config", configFile,
		"--manifest", filepath.Join("testdata", "models.yaml"), "--all", "--force")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "Keeping 2 admin user(s)")
	assert.Equal(t, 0, countRows(t, dbFile, "shop_order"))
	assert.Equal(t, 2, countRows(t, dbFile, "accounts_user"))
	assert.Equal(t, 1, countRows(t, dbFile, "auth_group"), "not in the manifest")
}
