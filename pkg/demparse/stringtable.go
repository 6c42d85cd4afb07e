package demparse

import (
	"log/slog"
)

// stringTable interns strings under sparse indices. Combat log names live in
// the CombatLogNames table and messages reference them by index.
type stringTable struct {
	name    string
	entries map[int32]string
}

// tableStore tracks every string table of the capture. Tables are addressed
// by name for lookups and by creation order for updates.
type tableStore struct {
	byName map[string]*stringTable
	byID   []*stringTable
}

func newTableStore() *tableStore {
	return &tableStore{byName: map[string]*stringTable{}}
}

func (store *tableStore) getOrCreate(name string) *stringTable {
	if table, found := store.byName[name]; found {
		return table
	}

	table := &stringTable{name: name, entries: map[int32]string{}}
	store.byName[name] = table
	store.byID = append(store.byID, table)

	return table
}

func (store *tableStore) applyCreate(msg *CreateStringTable) {
	table := store.getOrCreate(msg.Name)

	for _, entry := range msg.Entries {
		table.entries[entry.Index] = entry.Value
	}
}

func (store *tableStore) applyUpdate(msg *UpdateStringTable) {
	if msg.TableID < 0 || int(msg.TableID) >= len(store.byID) {
		slog.Debug("Ignoring update for unknown string table", slog.Int("table_id", int(msg.TableID)))

		return
	}

	table := store.byID[msg.TableID]

	for _, entry := range msg.Entries {
		table.entries[entry.Index] = entry.Value
	}
}

// applySnapshot replaces the contents of every table named in a full dump.
func (store *tableStore) applySnapshot(msg *StringTables) {
	for _, snapshot := range msg.Tables {
		table := store.getOrCreate(snapshot.Name)
		table.entries = make(map[int32]string, len(snapshot.Items))

		for index, item := range snapshot.Items {
			table.entries[int32(index)] = item
		}
	}
}

func (store *tableStore) lookup(tableName string, index int32) (string, bool) {
	table, found := store.byName[tableName]
	if !found {
		return "", false
	}

	value, found := table.entries[index]

	return value, found
}
