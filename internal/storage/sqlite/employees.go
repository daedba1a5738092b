package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/valetpay/internal/models"
)

// CreateEmployee inserts a new employee into the registry.
func (s *SQLiteStore) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	if employee.CreatedAt == 0 {
		employee.CreatedAt = time.Now().Unix()
	}

	var id any
	if employee.ID != 0 {
		id = employee.ID
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO employees (id, name, handle, created_at) VALUES (?, ?, ?, ?)",
		id, employee.Name, employee.Key, employee.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}

	if employee.ID == 0 {
		newID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read employee id: %w", err)
		}
		employee.ID = newID
	}

	return nil
}

// ListEmployees retrieves the whole registry ordered by ID.
func (s *SQLiteStore) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, handle, created_at FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Key, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}

	return employees, nil
}
