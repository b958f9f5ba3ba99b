//go:build cgo

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
)

// KuzuStore implements the Store interface using KuzuDB as the backend.
// Categories are true graph nodes linked by NEXT_STEP relationships, so
// the stored pipeline topology matches the in-memory one. It requires CGO
// because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at
// the given directory path, so the category graph and jobs survive across
// sessions. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Category(
		id STRING,
		name STRING,
		ord INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Job(
		id STRING,
		farmer_id STRING,
		farmer_name STRING,
		field_id STRING,
		field_name STRING,
		sub_location STRING,
		base_rate INT64,
		has_negotiated BOOLEAN,
		negotiated_rate INT64,
		quantity DOUBLE,
		unit STRING,
		additional_fee INT64,
		has_transport BOOLEAN,
		origin STRING,
		destination STRING,
		cargo STRING,
		distance_km DOUBLE,
		distance_rate INT64,
		transport_fee INT64,
		payment_status STRING,
		created_at STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Sched(
		id STRING,
		job_id STRING,
		category_id STRING,
		category_name STRING,
		stage STRING,
		worker_id STRING,
		worker_name STRING,
		scheduled_start STRING,
		has_amount BOOLEAN,
		amount INT64,
		memo STRING,
		pos INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Extra(
		id STRING,
		job_id STRING,
		category_id STRING,
		amount INT64,
		reason STRING,
		created_at STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS NEXT_STEP(FROM Category TO Category)`,
	`CREATE REL TABLE IF NOT EXISTS OWNS(FROM Job TO Sched)`,
	`CREATE REL TABLE IF NOT EXISTS HAS_EXTRA(FROM Job TO Extra)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Category graph ----------

// SaveGraph replaces the stored category set and NEXT_STEP edges with the
// snapshot's contents.
func (s *KuzuStore) SaveGraph(_ context.Context, snap pipeline.Snapshot) error {
	if err := s.exec("MATCH (c:Category) DETACH DELETE c", nil); err != nil {
		return err
	}
	cats := snap.Categories()
	for _, c := range cats {
		err := s.exec(
			"CREATE (c:Category {id: $id, name: $name, ord: $ord})",
			map[string]any{
				"id":   c.ID,
				"name": c.Name,
				"ord":  int64(c.Order),
			},
		)
		if err != nil {
			return err
		}
	}
	for _, c := range cats {
		if c.NextID == "" {
			continue
		}
		err := s.exec(
			`MATCH (a:Category {id: $src}), (b:Category {id: $dst})
			 CREATE (a)-[:NEXT_STEP]->(b)`,
			map[string]any{"src": c.ID, "dst": c.NextID},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadGraph rebuilds a Graph from the stored categories and NEXT_STEP
// edges, in stored order.
func (s *KuzuStore) LoadGraph(_ context.Context) (*pipeline.Graph, error) {
	rows, err := s.query(
		`MATCH (c:Category)
		 OPTIONAL MATCH (c)-[:NEXT_STEP]->(n:Category)
		 RETURN c.id, c.name, c.ord, n.id
		 ORDER BY c.ord`,
		nil,
	)
	if err != nil {
		return nil, err
	}

	cats := make([]pipeline.Category, 0, len(rows))
	for _, r := range rows {
		cats = append(cats, pipeline.Category{
			ID:     toString(r[0]),
			Name:   toString(r[1]),
			Order:  toInt(r[2]),
			NextID: toString(r[3]),
		})
	}
	return pipeline.NewGraphFrom(cats), nil
}

// ---------- Job aggregates ----------

// SaveAggregate replaces the stored job wholesale: the previous job node
// and its owned schedule and extra nodes are deleted, then the current
// state is inserted.
func (s *KuzuStore) SaveAggregate(_ context.Context, agg *schedule.Aggregate) error {
	if agg.ID == "" {
		return &pipeline.ValidationError{Reason: "aggregate id must not be empty"}
	}
	if err := s.deleteAggregateNodes(agg.ID); err != nil {
		return err
	}

	tr := agg.Transport
	if tr == nil {
		tr = &schedule.Transport{}
	}
	var negotiated int64
	if agg.Rate.NegotiatedRate != nil {
		negotiated = *agg.Rate.NegotiatedRate
	}
	err := s.exec(
		`CREATE (j:Job {
			id: $id,
			farmer_id: $farmer_id,
			farmer_name: $farmer_name,
			field_id: $field_id,
			field_name: $field_name,
			sub_location: $sub_location,
			base_rate: $base_rate,
			has_negotiated: $has_negotiated,
			negotiated_rate: $negotiated_rate,
			quantity: $quantity,
			unit: $unit,
			additional_fee: $additional_fee,
			has_transport: $has_transport,
			origin: $origin,
			destination: $destination,
			cargo: $cargo,
			distance_km: $distance_km,
			distance_rate: $distance_rate,
			transport_fee: $transport_fee,
			payment_status: $payment_status,
			created_at: $created_at
		})`,
		map[string]any{
			"id":              agg.ID,
			"farmer_id":       agg.FarmerID,
			"farmer_name":     agg.FarmerName,
			"field_id":        agg.FieldID,
			"field_name":      agg.FieldName,
			"sub_location":    agg.SubLocation,
			"base_rate":       agg.Rate.BaseRate,
			"has_negotiated":  agg.Rate.NegotiatedRate != nil,
			"negotiated_rate": negotiated,
			"quantity":        agg.Rate.Quantity,
			"unit":            agg.Rate.Unit,
			"additional_fee":  agg.Rate.AdditionalFee,
			"has_transport":   agg.Transport != nil,
			"origin":          tr.Origin,
			"destination":     tr.Destination,
			"cargo":           tr.Cargo,
			"distance_km":     tr.DistanceKm,
			"distance_rate":   tr.DistanceRate,
			"transport_fee":   tr.AdditionalFee,
			"payment_status":  string(agg.PaymentStatus),
			"created_at":      agg.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	)
	if err != nil {
		return err
	}

	for i, cs := range agg.Schedules {
		var amount int64
		if cs.Amount != nil {
			amount = *cs.Amount
		}
		err := s.exec(
			`CREATE (t:Sched {
				id: $id,
				job_id: $job_id,
				category_id: $category_id,
				category_name: $category_name,
				stage: $stage,
				worker_id: $worker_id,
				worker_name: $worker_name,
				scheduled_start: $scheduled_start,
				has_amount: $has_amount,
				amount: $amount,
				memo: $memo,
				pos: $pos
			})`,
			map[string]any{
				"id":              cs.ID,
				"job_id":          agg.ID,
				"category_id":     cs.CategoryID,
				"category_name":   cs.CategoryName,
				"stage":           string(cs.Stage),
				"worker_id":       cs.WorkerID,
				"worker_name":     cs.WorkerName,
				"scheduled_start": cs.ScheduledStart.UTC().Format(time.RFC3339Nano),
				"has_amount":      cs.Amount != nil,
				"amount":          amount,
				"memo":            cs.Memo,
				"pos":             int64(i),
			},
		)
		if err != nil {
			return err
		}
		err = s.exec(
			`MATCH (j:Job {id: $job}), (t:Sched {id: $sched})
			 CREATE (j)-[:OWNS]->(t)`,
			map[string]any{"job": agg.ID, "sched": cs.ID},
		)
		if err != nil {
			return err
		}
	}

	for _, x := range agg.Extras {
		err := s.exec(
			`CREATE (x:Extra {
				id: $id,
				job_id: $job_id,
				category_id: $category_id,
				amount: $amount,
				reason: $reason,
				created_at: $created_at
			})`,
			map[string]any{
				"id":          x.ID,
				"job_id":      agg.ID,
				"category_id": x.CategoryID,
				"amount":      x.Amount,
				"reason":      x.Reason,
				"created_at":  x.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
		)
		if err != nil {
			return err
		}
		err = s.exec(
			`MATCH (j:Job {id: $job}), (x:Extra {id: $extra})
			 CREATE (j)-[:HAS_EXTRA]->(x)`,
			map[string]any{"job": agg.ID, "extra": x.ID},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadAggregate reads one job and its schedules and extras.
func (s *KuzuStore) LoadAggregate(_ context.Context, id string) (*schedule.Aggregate, error) {
	rows, err := s.query(
		`MATCH (j:Job {id: $id})
		 RETURN j.id, j.farmer_id, j.farmer_name, j.field_id, j.field_name,
		        j.sub_location, j.base_rate, j.has_negotiated, j.negotiated_rate,
		        j.quantity, j.unit, j.additional_fee, j.has_transport, j.origin,
		        j.destination, j.cargo, j.distance_km, j.distance_rate,
		        j.transport_fee, j.payment_status, j.created_at`,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &pipeline.NotFoundError{Kind: "job", ID: id}
	}
	agg := rowToJob(rows[0])

	schedRows, err := s.query(
		`MATCH (t:Sched {job_id: $id})
		 RETURN t.id, t.category_id, t.category_name, t.stage, t.worker_id,
		        t.worker_name, t.scheduled_start, t.has_amount, t.amount, t.memo
		 ORDER BY t.pos`,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	for _, r := range schedRows {
		cs := schedule.CategorySchedule{
			ID:             toString(r[0]),
			CategoryID:     toString(r[1]),
			CategoryName:   toString(r[2]),
			Stage:          schedule.Stage(toString(r[3])),
			WorkerID:       toString(r[4]),
			WorkerName:     toString(r[5]),
			ScheduledStart: toTime(r[6]),
			Memo:           toString(r[9]),
		}
		if toBool(r[7]) {
			amt := int64(toInt(r[8]))
			cs.Amount = &amt
		}
		agg.Schedules = append(agg.Schedules, cs)
	}

	extraRows, err := s.query(
		`MATCH (x:Extra {job_id: $id})
		 RETURN x.id, x.category_id, x.amount, x.reason, x.created_at
		 ORDER BY x.created_at`,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	for _, r := range extraRows {
		agg.Extras = append(agg.Extras, schedule.ExtraSettlement{
			ID:         toString(r[0]),
			CategoryID: toString(r[1]),
			Amount:     int64(toInt(r[2])),
			Reason:     toString(r[3]),
			CreatedAt:  toTime(r[4]),
		})
	}
	return agg, nil
}

// ListAggregates returns jobs matching the filter, ordered by creation
// time, with the same page-token pagination as MemStore.
func (s *KuzuStore) ListAggregates(ctx context.Context, filter ListFilter) (*ListResult, error) {
	rows, err := s.query(
		"MATCH (j:Job) RETURN j.id ORDER BY j.created_at, j.id", nil,
	)
	if err != nil {
		return nil, err
	}

	startIdx := 0
	if filter.PageToken != "" {
		found := false
		for i, r := range rows {
			if toString(r[0]) == filter.PageToken {
				startIdx = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid page token %q", filter.PageToken)
		}
	}

	var matched []schedule.Aggregate
	totalBefore := 0
	for i, r := range rows {
		agg, err := s.LoadAggregate(ctx, toString(r[0]))
		if err != nil {
			return nil, err
		}
		if !matchesFilter(agg, filter) {
			continue
		}
		if i < startIdx {
			totalBefore++
			continue
		}
		matched = append(matched, *agg)
	}
	totalSize := totalBefore + len(matched)

	var nextPageToken string
	if filter.PageSize > 0 && len(matched) > filter.PageSize {
		nextPageToken = matched[filter.PageSize-1].ID
		matched = matched[:filter.PageSize]
	}
	if matched == nil {
		matched = []schedule.Aggregate{}
	}

	return &ListResult{
		Jobs:          matched,
		TotalSize:     totalSize,
		NextPageToken: nextPageToken,
	}, nil
}

// DeleteAggregate removes a job and its owned nodes.
func (s *KuzuStore) DeleteAggregate(_ context.Context, id string) error {
	rows, err := s.query("MATCH (j:Job {id: $id}) RETURN count(j)", map[string]any{"id": id})
	if err != nil {
		return err
	}
	if len(rows) == 0 || toInt(rows[0][0]) == 0 {
		return &pipeline.NotFoundError{Kind: "job", ID: id}
	}
	return s.deleteAggregateNodes(id)
}

// CategoryInUse reports whether any stored schedule references the
// category.
func (s *KuzuStore) CategoryInUse(_ context.Context, categoryID string) (bool, error) {
	rows, err := s.query(
		"MATCH (t:Sched {category_id: $id}) RETURN count(t)",
		map[string]any{"id": categoryID},
	)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && toInt(rows[0][0]) > 0, nil
}

// Stats returns counts of all node tables.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	categories, err := s.countTable("Category")
	if err != nil {
		return nil, err
	}
	jobs, err := s.countTable("Job")
	if err != nil {
		return nil, err
	}
	scheds, err := s.countTable("Sched")
	if err != nil {
		return nil, err
	}
	extras, err := s.countTable("Extra")
	if err != nil {
		return nil, err
	}
	return &Stats{
		CategoryCount: categories,
		JobCount:      jobs,
		ScheduleCount: scheds,
		ExtraCount:    extras,
	}, nil
}

// deleteAggregateNodes removes the job node and everything it owns.
func (s *KuzuStore) deleteAggregateNodes(id string) error {
	statements := []string{
		"MATCH (j:Job {id: $id})-[:OWNS]->(t:Sched) DETACH DELETE t",
		"MATCH (j:Job {id: $id})-[:HAS_EXTRA]->(x:Extra) DETACH DELETE x",
		"MATCH (j:Job {id: $id}) DETACH DELETE j",
	}
	for _, stmt := range statements {
		if err := s.exec(stmt, map[string]any{"id": id}); err != nil {
			return err
		}
	}
	return nil
}

// rowToJob converts a 21-column Job result row into an Aggregate.
func rowToJob(r []any) *schedule.Aggregate {
	agg := &schedule.Aggregate{
		ID:          toString(r[0]),
		FarmerID:    toString(r[1]),
		FarmerName:  toString(r[2]),
		FieldID:     toString(r[3]),
		FieldName:   toString(r[4]),
		SubLocation: toString(r[5]),
		Rate: schedule.RateInfo{
			BaseRate:      int64(toInt(r[6])),
			Quantity:      toFloat64(r[9]),
			Unit:          toString(r[10]),
			AdditionalFee: int64(toInt(r[11])),
		},
		PaymentStatus: schedule.PaymentStatus(toString(r[19])),
		CreatedAt:     toTime(r[20]),
	}
	if toBool(r[7]) {
		nr := int64(toInt(r[8]))
		agg.Rate.NegotiatedRate = &nr
	}
	if toBool(r[12]) {
		agg.Transport = &schedule.Transport{
			Origin:        toString(r[13]),
			Destination:   toString(r[14]),
			Cargo:         toString(r[15]),
			DistanceKm:    toFloat64(r[16]),
			DistanceRate:  int64(toInt(r[17])),
			AdditionalFee: int64(toInt(r[18])),
		}
	}
	return agg
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	if len(params) == 0 {
		res, err := s.conn.Query(cypher)
		if err != nil {
			return fmt.Errorf("kuzu: execute: %w", err)
		}
		res.Close()
		return nil
	}

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type; nil (from OPTIONAL
// MATCH misses) coerces to the zero value.

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

func toTime(v any) time.Time {
	t, err := time.Parse(time.RFC3339Nano, toString(v))
	if err != nil {
		return time.Time{}
	}
	return t
}
