package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"github.com/technoplato/sharing-instant-sub003/livequery"
	"github.com/technoplato/sharing-instant-sub003/livequery/postgresengine/internal/adapters"
)

const (
	defaultEntityTableName = "entities"
	defaultLinkTableName   = "entity_links"
	defaultPollInterval    = 500 * time.Millisecond

	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgDecodePayloadFailed    = "failed to decode entity payload"
	logMsgQueryCompleted         = "query completed"
	logMsgNotifyFailed           = "failed to notify change channel"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "engine operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrNamespace             = "namespace"
	logAttrEntityCount           = "entity_count"
	logAttrDurationMS            = "duration_ms"
	logActionQuery               = "query"
	logActionLinks               = "resolve_links"

	metricQueryDuration = "livequery_engine_query_duration_seconds"
	metricQueryErrors   = "livequery_engine_query_errors_total"

	colScopeID  = "scope_id"
	colNS       = "namespace"
	colEntityID = "entity_id"
	colPayload  = "payload"
	colParentID = "parent_id"
	colLinkName = "link_name"
	colChildID  = "child_id"
	colPosition = "position"

	dialectPostgres = "postgres"
)

type (
	sqlQueryString = string
	goquComparable = exp.LiteralExpression
)

var payloadJSON = jsoniter.Config{SortMapKeys: true}.Froze()

// Engine is the reference livequery.Upstream implementation on PostgreSQL.
// Entities live in a table of (scope_id, namespace, entity_id, payload jsonb)
// rows; relationships live in a link table of (scope_id, parent_id,
// link_name, child_id, position) rows. One-shot queries compile the
// configuration to SQL; subscriptions poll the same query and suppress
// deliveries whose result digest did not change, optionally woken early by
// LISTEN/NOTIFY.
type Engine struct {
	db               adapters.DBAdapter
	entityTableName  string
	linkTableName    string
	pollInterval     time.Duration
	changeChannel    string
	pgxPool          *pgxpool.Pool
	pqListener       *pq.Listener
	changeFeed       ChangeFeed
	notifier         *notifier
	logger           livequery.Logger
	contextualLogger livequery.ContextualLogger
	metricsCollector livequery.MetricsCollector
	tracingCollector livequery.TracingCollector
}

// NewUpstreamFromPGXPool creates an Engine using a pgx pool with optional
// configuration. When WithChangeChannel is set, a dedicated connection from
// this pool runs LISTEN to wake subscriptions ahead of their poll interval.
func NewUpstreamFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, livequery.ErrNilDatabaseConnection
	}

	adapter := adapters.NewPGXAdapter(db)
	engine := newEngine(adapter)
	engine.pgxPool = adapter.Pool()

	if err := engine.applyOptions(options); err != nil {
		return nil, err
	}
	engine.startChangeFeed()

	return engine, nil
}

// NewUpstreamFromSQLDB creates an Engine using a sql.DB with optional
// configuration. Pair it with WithPQListener for LISTEN/NOTIFY wakes.
func NewUpstreamFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, livequery.ErrNilDatabaseConnection
	}

	engine := newEngine(adapters.NewSQLAdapter(db))
	if err := engine.applyOptions(options); err != nil {
		return nil, err
	}
	engine.startChangeFeed()

	return engine, nil
}

// NewUpstreamFromSQLX creates an Engine using a sqlx.DB with optional
// configuration. Pair it with WithPQListener for LISTEN/NOTIFY wakes.
func NewUpstreamFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, livequery.ErrNilDatabaseConnection
	}

	engine := newEngine(adapters.NewSQLXAdapter(db))
	if err := engine.applyOptions(options); err != nil {
		return nil, err
	}
	engine.startChangeFeed()

	return engine, nil
}

func newEngine(db adapters.DBAdapter) *Engine {
	return &Engine{
		db:              db,
		entityTableName: defaultEntityTableName,
		linkTableName:   defaultLinkTableName,
		pollInterval:    defaultPollInterval,
		notifier:        newNotifier(),
	}
}

func (e *Engine) applyOptions(options []Option) error {
	for _, option := range options {
		if err := option(e); err != nil {
			return err
		}
	}

	return nil
}

// startChangeFeed builds and starts the change feed once all options have
// been applied, so a failing option never leaves a feed goroutine behind.
func (e *Engine) startChangeFeed() {
	if e.pqListener != nil {
		e.changeFeed = newPQChangeFeed(e.pqListener, e.changeChannel)
	} else if e.changeChannel != "" && e.pgxPool != nil {
		e.changeFeed = newPGXChangeFeed(e.pgxPool, e.changeChannel)
	}

	if e.changeFeed != nil {
		go e.relayChanges()
	}
}

// relayChanges fans change-feed wakes out to all open subscriptions.
func (e *Engine) relayChanges() {
	for range e.changeFeed.Changes() {
		e.notifier.broadcast()
	}
}

// Close stops the change feed, if any. Open subscriptions keep polling.
func (e *Engine) Close() {
	if e.changeFeed != nil {
		e.changeFeed.Close()
	}
}

// NotifyChange emits a NOTIFY on the configured change channel so every
// engine listening on it re-runs its queries immediately. Writers call it
// after committing entity changes when the schema has no notification
// trigger. Local subscriptions are woken directly, without waiting for the
// notification round trip.
func (e *Engine) NotifyChange(ctx context.Context) error {
	if e.changeChannel == "" {
		return livequery.ErrEmptyChangeChannel
	}

	if _, err := e.db.Exec(ctx, "NOTIFY "+pgx.Identifier{e.changeChannel}.Sanitize()); err != nil {
		e.logError(ctx, logMsgNotifyFailed, logAttrError, err.Error())
		return errors.Join(livequery.ErrNotifyingChangeFailed, err)
	}

	e.notifier.broadcast()

	return nil
}

// QueryOnce implements livequery.Upstream. It fetches exactly one snapshot of
// the configured query, including resolved links, and returns it.
func (e *Engine) QueryOnce(
	ctx context.Context,
	scope livequery.ScopeID,
	config livequery.QueryConfiguration,
) (livequery.Entities, error) {

	var span livequery.SpanContext
	if e.tracingCollector != nil {
		ctx, span = e.tracingCollector.StartSpan(ctx, "livequery.engine.query", map[string]string{
			logAttrNamespace: config.Namespace(),
		})
	}

	entities, err := e.fetch(ctx, scope, config)

	if span != nil {
		if err != nil {
			e.tracingCollector.FinishSpan(span, "error", map[string]string{logAttrError: err.Error()})
		} else {
			e.tracingCollector.FinishSpan(span, "ok", map[string]string{
				logAttrEntityCount: fmt.Sprintf("%d", len(entities)),
			})
		}
	}

	return entities, err
}

// fetch runs the root query and resolves the link tree.
func (e *Engine) fetch(
	ctx context.Context,
	scope livequery.ScopeID,
	config livequery.QueryConfiguration,
) (livequery.Entities, error) {

	// A zero limit can never return rows; skip the round trip.
	if limit, ok := config.Limit(); ok && limit == 0 {
		return livequery.Entities{}, nil
	}

	sqlQuery, buildErr := e.buildSelectQuery(scope, config)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildSelectQueryFailed, logAttrError, buildErr.Error())
		return nil, buildErr
	}

	entities, duration, queryErr := e.queryEntities(ctx, sqlQuery)
	if queryErr != nil {
		e.countError(ctx, config.Namespace())
		return nil, queryErr
	}

	if linkErr := e.resolveLinks(ctx, scope, entities, config.LinkTree()); linkErr != nil {
		e.countError(ctx, config.Namespace())
		return nil, linkErr
	}

	e.recordQueryDuration(ctx, config.Namespace(), duration)
	e.logOperation(ctx, logMsgQueryCompleted,
		logAttrNamespace, config.Namespace(),
		logAttrEntityCount, len(entities),
		logAttrDurationMS, durationToMilliseconds(duration))

	return entities, nil
}

// queryEntities executes a select returning (entity_id, payload) rows.
func (e *Engine) queryEntities(ctx context.Context, sqlQuery sqlQueryString) (
	livequery.Entities,
	time.Duration,
	error,
) {

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(ctx, sqlQuery, logActionQuery, duration)

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, duration, errors.Join(livequery.ErrQueryingEntitiesFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	entities := make(livequery.Entities, 0)

	for rows.Next() {
		var entityID string
		var payload []byte

		if scanErr := rows.Scan(&entityID, &payload); scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, duration, errors.Join(livequery.ErrScanningDBRowFailed, scanErr)
		}

		entity, buildErr := buildEntity(entityID, payload)
		if buildErr != nil {
			e.logError(ctx, logMsgDecodePayloadFailed, logAttrError, buildErr.Error())
			return nil, duration, buildErr
		}

		entities = append(entities, entity)
	}

	return entities, duration, nil
}

func buildEntity(entityID string, payload []byte) (livequery.Entity, error) {
	fields := make(map[string]any)
	if len(payload) > 0 {
		if err := payloadJSON.Unmarshal(payload, &fields); err != nil {
			return livequery.Entity{}, errors.Join(livequery.ErrDecodingPayloadFailed, err)
		}
	}

	return livequery.Entity{ID: entityID, Fields: fields}, nil
}

func (e *Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

/***** SQL building *****/

func (e *Engine) buildSelectQuery(
	scope livequery.ScopeID,
	config livequery.QueryConfiguration,
) (sqlQueryString, error) {

	selectStmt := goqu.Dialect(dialectPostgres).
		From(e.entityTableName).
		Select(colEntityID, colPayload).
		Where(
			goqu.Ex{colScopeID: scope.String()},
			goqu.Ex{colNS: config.Namespace()},
		)

	if entityID, ok := config.EntityID(); ok {
		selectStmt = selectStmt.Where(goqu.Ex{colEntityID: entityID.String()})
	}

	whereExpressions, whereErr := whereClauseExpressions(colPayload, config.WhereClause())
	if whereErr != nil {
		return "", whereErr
	}
	if len(whereExpressions) > 0 {
		selectStmt = selectStmt.Where(goqu.And(whereExpressions...))
	}

	if field, descending, ok := config.OrderBy(); ok {
		orderExpr := fieldText(colPayload, field)
		if descending {
			selectStmt = selectStmt.Order(orderExpr.Desc())
		} else {
			selectStmt = selectStmt.Order(orderExpr.Asc())
		}
	}
	// entity_id as the tie breaker keeps result digests stable across polls
	selectStmt = selectStmt.OrderAppend(goqu.I(colEntityID).Asc())

	if limit, ok := config.Limit(); ok {
		selectStmt = selectStmt.Limit(uint(limit))
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(livequery.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// whereClauseExpressions compiles a where clause into goqu expressions over a
// jsonb payload column. Map keys are iterated in sorted order so generated
// SQL is deterministic.
func whereClauseExpressions(payloadColumn string, whereClause map[string]any) ([]goqu.Expression, error) {
	if len(whereClause) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(whereClause))
	for field := range whereClause {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	expressions := make([]goqu.Expression, 0, len(fields))
	for _, field := range fields {
		op, value := splitOperator(whereClause[field])

		expression, err := predicateExpression(payloadColumn, field, op, value)
		if err != nil {
			return nil, err
		}

		expressions = append(expressions, expression)
	}

	return expressions, nil
}

// splitOperator unwraps a single-key operator object; a bare literal means equality.
func splitOperator(value any) (string, any) {
	if operatorObject, ok := value.(map[string]any); ok && len(operatorObject) == 1 {
		for op, operand := range operatorObject {
			if len(op) > 0 && op[0] == '$' {
				return op, operand
			}
		}
	}

	return livequery.OpEqual, value
}

func predicateExpression(payloadColumn, field, op string, value any) (goqu.Expression, error) {
	switch op {
	case livequery.OpEqual:
		return comparableField(payloadColumn, field, value).Eq(comparableValue(value)), nil
	case livequery.OpNotEqual:
		return comparableField(payloadColumn, field, value).Neq(comparableValue(value)), nil
	case livequery.OpGreaterThan:
		return comparableField(payloadColumn, field, value).Gt(comparableValue(value)), nil
	case livequery.OpGreaterOrEqual:
		return comparableField(payloadColumn, field, value).Gte(comparableValue(value)), nil
	case livequery.OpLessThan:
		return comparableField(payloadColumn, field, value).Lt(comparableValue(value)), nil
	case livequery.OpLessOrEqual:
		return comparableField(payloadColumn, field, value).Lte(comparableValue(value)), nil
	case livequery.OpIn:
		return inExpression(payloadColumn, field, value)
	case livequery.OpLike:
		return fieldText(payloadColumn, field).Like(comparableValue(value)), nil
	default:
		return nil, errors.Join(livequery.ErrUnsupportedOperator, fmt.Errorf("operator %q", op))
	}
}

func inExpression(payloadColumn, field string, value any) (goqu.Expression, error) {
	values, ok := value.([]any)
	if !ok {
		return nil, errors.Join(livequery.ErrUnsupportedOperator,
			fmt.Errorf("%s requires a list operand", livequery.OpIn))
	}

	if len(values) == 0 {
		// an empty IN list matches nothing
		return goqu.L("FALSE"), nil
	}

	rendered := make([]any, 0, len(values))
	for _, v := range values {
		rendered = append(rendered, comparableValue(v))
	}

	return comparableField(payloadColumn, field, values[0]).In(rendered...), nil
}

// comparableField renders the payload field extraction with a cast matching
// the operand's type, so numeric and boolean comparisons use value semantics
// instead of text collation.
func comparableField(payloadColumn, field string, value any) goquComparable {
	switch value.(type) {
	case bool:
		return goqu.L(fmt.Sprintf("(%s ->> ?)::boolean", payloadColumn), field)
	case int, int32, int64, float32, float64, time.Time, *time.Time:
		return goqu.L(fmt.Sprintf("(%s ->> ?)::numeric", payloadColumn), field)
	default:
		return fieldText(payloadColumn, field)
	}
}

func fieldText(payloadColumn, field string) goquComparable {
	return goqu.L(fmt.Sprintf("%s ->> ?", payloadColumn), field)
}

// comparableValue renders an operand for SQL comparison. Timestamps in
// payloads are stored as epoch milliseconds, so time.Time operands compare
// numerically.
func comparableValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.UnixMilli()
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UnixMilli()
	default:
		return value
	}
}

/***** link resolution *****/

// linkRow is one (parent, child) pair fetched from the link table.
type linkRow struct {
	parentID string
	entityID string
	payload  []byte
}

// resolveLinks populates Links on every parent entity, one batched query per
// link node, then recurses into the node's children over the fetched child
// set. Per-parent ordering and limits are applied in memory after the fetch.
func (e *Engine) resolveLinks(
	ctx context.Context,
	scope livequery.ScopeID,
	parents livequery.Entities,
	nodes []livequery.LinkNode,
) error {

	if len(parents) == 0 || len(nodes) == 0 {
		return nil
	}

	parentIDs := make([]any, 0, len(parents))
	for _, parent := range parents {
		parentIDs = append(parentIDs, parent.ID)
	}

	for _, node := range nodes {
		childrenByParent, resolveErr := e.fetchLinkedChildren(ctx, scope, parentIDs, node)
		if resolveErr != nil {
			return resolveErr
		}

		allChildren := make(livequery.Entities, 0)

		for i := range parents {
			children := childrenByParent[parents[i].ID]
			children = applyNodeOrderAndLimit(node, children)

			if parents[i].Links == nil {
				parents[i].Links = make(map[string]livequery.Entities)
			}
			parents[i].Links[node.Name()] = children
			allChildren = append(allChildren, children...)
		}

		if recurseErr := e.resolveLinks(ctx, scope, allChildren, node.Children()); recurseErr != nil {
			return recurseErr
		}
	}

	return nil
}

func (e *Engine) fetchLinkedChildren(
	ctx context.Context,
	scope livequery.ScopeID,
	parentIDs []any,
	node livequery.LinkNode,
) (map[string]livequery.Entities, error) {

	sqlQuery, buildErr := e.buildLinkQuery(scope, parentIDs, node)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildSelectQueryFailed, logAttrError, buildErr.Error())
		return nil, buildErr
	}

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, sqlQuery, logActionLinks, time.Since(start))

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, errors.Join(livequery.ErrQueryingEntitiesFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	childrenByParent := make(map[string]livequery.Entities)

	for rows.Next() {
		var row linkRow

		if scanErr := rows.Scan(&row.parentID, &row.entityID, &row.payload); scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(livequery.ErrScanningDBRowFailed, scanErr)
		}

		child, buildErr := buildEntity(row.entityID, row.payload)
		if buildErr != nil {
			e.logError(ctx, logMsgDecodePayloadFailed, logAttrError, buildErr.Error())
			return nil, buildErr
		}

		childrenByParent[row.parentID] = append(childrenByParent[row.parentID], child)
	}

	return childrenByParent, nil
}

func (e *Engine) buildLinkQuery(
	scope livequery.ScopeID,
	parentIDs []any,
	node livequery.LinkNode,
) (sqlQueryString, error) {

	linkTable := goqu.T(e.linkTableName).As("l")
	entityTable := goqu.T(e.entityTableName).As("c")

	selectStmt := goqu.Dialect(dialectPostgres).
		From(linkTable).
		Join(entityTable, goqu.On(
			goqu.I("c."+colScopeID).Eq(goqu.I("l."+colScopeID)),
			goqu.I("c."+colEntityID).Eq(goqu.I("l."+colChildID)),
		)).
		Select(goqu.I("l."+colParentID), goqu.I("c."+colEntityID), goqu.I("c."+colPayload)).
		Where(
			goqu.I("l."+colScopeID).Eq(scope.String()),
			goqu.I("l."+colLinkName).Eq(node.Name()),
			goqu.I("l."+colParentID).In(parentIDs...),
		).
		Order(goqu.I("l."+colParentID).Asc(), goqu.I("l."+colPosition).Asc())

	whereExpressions, whereErr := whereClauseExpressions("c."+colPayload, node.WhereClause())
	if whereErr != nil {
		return "", whereErr
	}
	if len(whereExpressions) > 0 {
		selectStmt = selectStmt.Where(goqu.And(whereExpressions...))
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(livequery.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// applyNodeOrderAndLimit applies a link node's ordering and limit to one
// parent's children. Link-table position order is the default.
func applyNodeOrderAndLimit(node livequery.LinkNode, children livequery.Entities) livequery.Entities {
	if children == nil {
		return livequery.Entities{}
	}

	if field, descending, ok := node.OrderBy(); ok {
		sort.SliceStable(children, func(i, j int) bool {
			c := compareFieldValues(children[i].Fields[field], children[j].Fields[field])
			if descending {
				return c > 0
			}
			return c < 0
		})
	}

	if limit, ok := node.Limit(); ok && limit < len(children) {
		children = children[:limit]
	}

	return children
}

// compareFieldValues orders decoded JSON field values: nil first, then
// booleans, numbers, strings. Mixed types order by type rank so sorting is
// total and stable.
func compareFieldValues(a, b any) int {
	rankA, rankB := typeRank(a), typeRank(b)
	if rankA != rankB {
		return rankA - rankB
	}

	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

/***** logging and metrics *****/

func (e *Engine) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	e.logDebug(ctx, logMsgSQLExecuted+action,
		logAttrDurationMS, durationToMilliseconds(duration),
		logAttrQuery, sqlQuery)
}

func (e *Engine) logOperation(ctx context.Context, action string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}
}

func (e *Engine) logDebug(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}

	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}

	if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}

// recordQueryDuration records the query duration, preferring the
// context-aware method when the configured collector supports it.
func (e *Engine) recordQueryDuration(ctx context.Context, namespace string, duration time.Duration) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{logAttrNamespace: namespace}

	if contextual, ok := e.metricsCollector.(livequery.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricQueryDuration, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metricQueryDuration, duration, labels)
}

func (e *Engine) countError(ctx context.Context, namespace string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{logAttrNamespace: namespace}

	if contextual, ok := e.metricsCollector.(livequery.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricQueryErrors, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metricQueryErrors, labels)
}

func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// Ensure Engine implements livequery.Upstream.
var _ livequery.Upstream = (*Engine)(nil)
