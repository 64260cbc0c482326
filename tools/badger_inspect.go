package main

import (
	"chat-lounge/repositories"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Dumps the persisted chat history (or the registered users) of a stopped server.
//
//	go run ./tools -db ./data/badger
//	go run ./tools -db ./data/badger -prefix user:
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan, msg: or user:")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	var toRow func(key string, value []byte) ([]string, error)
	switch *prefix {
	case "msg:":
		table.SetHeader([]string{"Key", "Seq", "Date", "Author", "Text"})
		toRow = messageRow
	case "user:":
		table.SetHeader([]string{"Key", "ID", "Username", "Created"})
		toRow = userRow
	default:
		log.Fatalf("Unknown prefix %q", *prefix)
	}

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				row, err := toRow(key, v)
				if err != nil {
					// Keep going, one broken entry should not hide the others
					fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
					return nil
				}
				table.Append(row)
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("%d entries\n", rows)
}

func messageRow(key string, value []byte) ([]string, error) {
	var m repositories.DiskMessage
	if err := json.Unmarshal(value, &m); err != nil {
		return nil, err
	}
	return []string{key, strconv.FormatUint(m.Seq, 10), m.At.Format("2006-01-02 15:04:05"), m.Author, m.Text}, nil
}

func userRow(key string, value []byte) ([]string, error) {
	var u repositories.User
	if err := json.Unmarshal(value, &u); err != nil {
		return nil, err
	}
	return []string{key, u.ID, u.Username, u.CreatedAt.Format("2006-01-02 15:04:05")}, nil
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed server leaves a log to truncate, which read-only cannot do
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
