package repo

import (
	"context"
	"database/sql"

	"calllab/internal/domain"
)

func scanNode(rows *sql.Rows) (domain.Node, error) {
	var n domain.Node
	var capabilities, metrics, lastSeen sql.NullString
	err := rows.Scan(&n.ID, &n.Hostname, &n.NodeType, &n.Status, &capabilities, &metrics, &lastSeen)
	if err != nil {
		return n, err
	}
	if capabilities.Valid {
		n.Capabilities = capabilities.String
	}
	if metrics.Valid {
		n.SystemMetrics = &metrics.String
	}
	if lastSeen.Valid {
		n.LastSeen = &lastSeen.String
	}
	return n, nil
}

const nodeColumns = `id, hostname, node_type, status, capabilities, system_metrics, last_seen`

// ListNodes returns the node roster, most recently seen first.
func (r Repo) ListNodes(ctx context.Context) ([]domain.Node, error) {
	rows, err := r.query(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// OnlineNodeMetrics returns hostname and system metrics of online nodes.
func (r Repo) OnlineNodeMetrics(ctx context.Context) ([]domain.Node, error) {
	rows, err := r.query(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE status = ?`, "online")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// MasterNodes lists the master node records.
func (r Repo) MasterNodes(ctx context.Context) ([]domain.Node, error) {
	rows, err := r.query(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE node_type = ?`, "master")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// DeleteMasterNodes removes stale master records and reports the count.
func (r Repo) DeleteMasterNodes(ctx context.Context) (int64, error) {
	res, err := r.exec(ctx, `DELETE FROM nodes WHERE node_type = ?`, "master")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertNode registers a node record.
func (r Repo) InsertNode(ctx context.Context, n domain.Node) error {
	_, err := r.exec(ctx, `INSERT INTO nodes(id, hostname, node_type, status, capabilities, last_seen)
VALUES (?,?,?,?,?,?)`, n.ID, n.Hostname, n.NodeType, n.Status, nullable(n.Capabilities), now())
	return err
}
