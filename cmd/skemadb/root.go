package main

import (
	"errors"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/skemadb"
	"github.com/reoring/skemadb/config"
	"github.com/reoring/skemadb/field"
)

// app carries flag values and the collection opened for one invocation.
type app struct {
	configPath string
	store      string
	dsn        string
	namespace  string
	schemaPath string
	logLevel   string

	schema *field.Field
	coll   *skemadb.Collection
	closer io.Closer
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skemadb",
		Short: "Schema-validated key-value documents",
		Long: `skemadb reads and writes schema-validated JSON documents in a memory,
SQLite or Redis store. Keys are dotted paths: "user.address.city" addresses
the city inside document "user".`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (YAML)")
	pf.StringVar(&a.store, "store", "", "store driver: memory, sqlite or redis")
	pf.StringVar(&a.dsn, "dsn", "", "sqlite path or redis URL")
	pf.StringVarP(&a.namespace, "namespace", "n", "", "collection namespace")
	pf.StringVarP(&a.schemaPath, "schema", "s", "", "YAML schema descriptor")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newGetCmd(a),
		newSetCmd(a),
		newDeleteCmd(a),
		newPushCmd(a),
		newPullCmd(a),
		newAllCmd(a),
		newCountCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newPingCmd(a),
		newSchemaCmd(a),
	)
	return cmd
}

// open loads config, applies flag overrides and opens the collection.
func (a *app) open(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.store != "" {
		cfg.Store.Driver = a.store
	}
	if a.dsn != "" {
		cfg.Store.DSN = a.dsn
	}
	if a.namespace != "" {
		cfg.Store.Namespace = a.namespace
	}
	if a.schemaPath != "" {
		cfg.Schema = a.schemaPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if a.schema, err = config.LoadSchema(cfg.Schema); err != nil {
		return err
	}
	st, closer, err := config.OpenStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	a.closer = closer
	a.coll = skemadb.New(st, a.schema, skemadb.WithLogger(logger), skemadb.WithKeyLocking())
	logger.Debug().Str("store", cfg.Store.Driver).Str("namespace", cfg.Store.Namespace).Msg("collection opened")
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// parseValue decodes a JSON argument. Text that is not valid JSON is taken
// as a plain string, so `set name Simon` works without quoting; JSON with
// duplicate keys is an error.
func parseValue(s string) (any, error) {
	v, err := skemadb.DecodeJSON([]byte(s))
	if err == nil {
		return v, nil
	}
	if errors.Is(err, skemadb.ErrDuplicateKey) {
		return nil, err
	}
	return s, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
