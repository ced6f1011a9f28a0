package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed posts.sql
var postsSQL string

//go:embed accounts.sql
var accountsSQL string

//go:embed graph.sql
var graphSQL string

//go:embed connections.sql
var connectionsSQL string

//go:embed features.sql
var featuresSQL string

// Function lists for verification
var PostsFunctions = []string{
	"init_posts",
	"insert_post",
	"select_post",
	"select_posts_by_author",
	"select_posts_mentioning",
	"count_posts",
}

var AccountsFunctions = []string{
	"init_accounts",
	"upsert_account",
	"select_account",
	"select_all_accounts",
	"select_accounts_by_attention",
	"delete_all_accounts",
}

var GraphFunctions = []string{
	"init_graph",
	"insert_graph_node",
	"insert_graph_edge",
	"select_graph_nodes",
	"select_graph_edges",
	"delete_graph",
}

var ConnectionsFunctions = []string{
	"init_connections",
	"insert_connections",
	"select_connections",
	"delete_connections",
}

var FeaturesFunctions = []string{
	"init_features",
	"insert_feature_run",
	"update_feature_run_row_count",
	"select_feature_run",
	"select_all_feature_runs",
	"select_feature_rows",
	"delete_feature_run",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadPostsSql loads post-related SQL functions
func LoadPostsSql(db *sql.DB, force bool) error {
	return load(db, "posts", postsSQL, PostsFunctions, force)
}

// LoadAccountsSql loads account-related SQL functions
func LoadAccountsSql(db *sql.DB, force bool) error {
	return load(db, "accounts", accountsSQL, AccountsFunctions, force)
}

// LoadGraphSql loads graph-related SQL functions
func LoadGraphSql(db *sql.DB, force bool) error {
	return load(db, "graph", graphSQL, GraphFunctions, force)
}

// LoadConnectionsSql loads connection-related SQL functions
func LoadConnectionsSql(db *sql.DB, force bool) error {
	return load(db, "connections", connectionsSQL, ConnectionsFunctions, force)
}

// LoadFeaturesSql loads feature-related SQL functions
func LoadFeaturesSql(db *sql.DB, force bool) error {
	return load(db, "features", featuresSQL, FeaturesFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	for _, loadFunc := range []func(*sql.DB, bool) error{
		LoadPostsSql,
		LoadAccountsSql,
		LoadGraphSql,
		LoadConnectionsSql,
		LoadFeaturesSql,
	} {
		if err := loadFunc(db, force); err != nil {
			return err
		}
	}
	return nil
}

func load(db *sql.DB, name string, script string, sqlFunctions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, sqlFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, sqlFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
