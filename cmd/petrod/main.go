// Command petrod opens a database file, drives the storage engine through a
// small scripted sequence of catalog/table/index operations, and prints
// what it finds. It is a bootstrap harness, not a SQL engine or REPL — no
// lexer/parser/executor exists in this module; every operation below calls
// the catalog and table heap directly. Grounded on the shape of
// cmd/seed in the retrieved DaemonDB example (open storage, create a
// handful of tables, insert sample rows, scan them back).
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/jobala/petro/buffer"
	"github.com/jobala/petro/catalog"
	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/types"
)

func main() {
	dbPath := flag.String("db", "petro.db", "path to the database file")
	poolSize := flag.Int("pool-size", 32, "buffer pool frame count")
	flag.Parse()

	diskMgr, err := disk.NewManager(*dbPath)
	if err != nil {
		log.Fatalf("petrod: opening %q: %v", *dbPath, err)
	}
	defer diskMgr.Close()

	scheduler := disk.NewScheduler(diskMgr)
	bpm := buffer.NewPoolManager(*poolSize, diskMgr, scheduler)

	// init=false: NewManager itself detects a never-written catalog meta
	// page (a fresh database file) and bootstraps a blank catalog for it.
	cm, err := catalog.NewManager(bpm, false)
	if err != nil {
		log.Fatalf("petrod: opening catalog: %v", err)
	}

	schema := types.NewSchema([]*types.Column{
		types.NewIntColumn("id", 0, false, true),
		types.NewCharColumn("name", 32, 1, false, false),
		types.NewIntColumn("age", 2, true, false),
	})

	students, err := cm.GetTable("students")
	if err != nil {
		students, err = cm.CreateTable("students", schema)
		if err != nil {
			log.Fatalf("petrod: creating table students: %v", err)
		}
		fmt.Println("created table students")

		if _, err := cm.CreateIndex("students", "students_by_id", []string{"id"}); err != nil {
			log.Fatalf("petrod: creating index students_by_id: %v", err)
		}
		fmt.Println("created index students_by_id")

		seed := []struct {
			id   int32
			name string
			age  int32
		}{
			{1, "Alice", 20},
			{2, "Bob", 21},
			{3, "Carol", 19},
		}
		for _, s := range seed {
			row := record.NewRow([]types.Value{
				types.NewInt(s.id),
				types.NewChar(s.name),
				types.NewInt(s.age),
			})
			if err := students.Heap.InsertTuple(row, nil); err != nil {
				log.Fatalf("petrod: inserting row %+v: %v", s, err)
			}

			idx, err := cm.GetIndex("students", "students_by_id")
			if err != nil {
				log.Fatalf("petrod: fetching index: %v", err)
			}
			keyRow, err := row.GetKeyFromRow(schema, idx.KeySchema)
			if err != nil {
				log.Fatalf("petrod: projecting key: %v", err)
			}
			if err := idx.Tree.Insert(keyRow, row.Rid, nil); err != nil {
				log.Fatalf("petrod: indexing row %+v: %v", s, err)
			}
		}
		fmt.Println("inserted 3 rows")
	} else {
		fmt.Println("reopened existing table students")
	}

	fmt.Println("\nscan of students:")
	it, err := students.Heap.Begin(nil)
	if err != nil {
		log.Fatalf("petrod: starting scan: %v", err)
	}
	row := &record.Row{}
	for it.Valid() {
		if _, err := it.Row(row); err != nil {
			log.Fatalf("petrod: reading row: %v", err)
		}
		fmt.Printf("  id=%d name=%s age=%d\n", row.Fields[0].Int, row.Fields[1].String, row.Fields[2].Int)
		if err := it.Next(); err != nil {
			log.Fatalf("petrod: advancing scan: %v", err)
		}
	}

	if idx, err := cm.GetIndex("students", "students_by_id"); err == nil {
		lookupKey := record.NewRow([]types.Value{types.NewInt(2)})
		if rid, ok, err := idx.Tree.GetValue(lookupKey, nil); err == nil && ok {
			found := &record.Row{}
			if _, err := students.Heap.GetTuple(rid, found, nil); err == nil {
				fmt.Printf("\nindex lookup id=2 -> name=%s\n", found.Fields[1].String)
			}
		}
	}

	if err := bpm.FlushAll(); err != nil {
		log.Fatalf("petrod: flushing buffer pool: %v", err)
	}
}
