package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx"
	log "github.com/sirupsen/logrus"
)

var (
	errCreateSchema      = errors.New("error creating `viewsync` schema")
	errDuplicateSchema   = errors.New("`viewsync` schema already exists")
	errCreateTriggerFunc = errors.New("error creating `notify_change` trigger function")
	errRegisterTrigger   = errors.New("error registering `notify_change` trigger on table")
	errTransactionBegin  = errors.New("error starting new transaction")
	errTransactionCommit = errors.New("error committing transaction")
)

// Teardown removes the `viewsync` schema and all associated trigger functions.
// Triggers registered on source tables are dropped with the function via CASCADE.
func Teardown(conn *pgx.Conn) error {
	_, err := conn.Exec("DROP SCHEMA viewsync CASCADE")
	if err != nil {
		return err
	}

	return nil
}

// Prepare prepares the database for publishing row changes.
// This will setup:
//   - new `viewsync` schema
//   - new `notify_change` TRIGGER function that puts row changes on the
//     `viewsync_changes` notification channel
//   - registers the trigger with all given tables in the source schema
func Prepare(conn *pgx.Conn, schema string, tables []string) error {
	tx, err := conn.Begin()
	if err != nil {
		return errTransactionBegin
	}

	err = createSchema(tx)
	if err != nil {
		// https://www.postgresql.org/docs/10/errcodes-appendix.html
		pgErr, ok := err.(pgx.PgError)
		if ok && pgErr.Code == "42P06" {
			return errDuplicateSchema
		}
		if ok {
			log.Printf("%+v", pgErr)
		}
		return errCreateSchema
	}

	err = createTriggerFunc(tx)
	if err != nil {
		return errCreateTriggerFunc
	}

	for _, table := range tables {
		err = registerTrigger(tx, schema, table)
		if err != nil {
			pgErr, ok := err.(pgx.PgError)
			if ok {
				log.Printf("%+v", pgErr)
			}
			return errRegisterTrigger
		}
	}

	if err = tx.Commit(); err != nil {
		log.WithError(err).Error(errTransactionCommit.Error())
		return errTransactionCommit
	}

	return nil
}

func createSchema(tx *pgx.Tx) error {
	_, err := tx.Exec(createSchemaViewSyncSQL)
	if err != nil {
		return err
	}

	_, err = tx.Exec(commentOnSchemaViewSyncSQL)
	return err
}

func createTriggerFunc(tx *pgx.Tx) error {
	_, err := tx.Exec(createNotifyTriggerFuncSQL)
	return err
}

func registerTrigger(tx *pgx.Tx, schema, table string) error {
	_, err := tx.Exec(fmt.Sprintf(registerNotifyTriggerSQL, schema, table))
	return err
}
