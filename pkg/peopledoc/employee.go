package peopledoc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp-forge/peopledoc/pkg/schema"
	"github.com/hashicorp-forge/peopledoc/pkg/transport"
)

// Employee is an employee record bound to a Client.
type Employee struct {
	*schema.Model
	client *Client
}

// Save creates or updates the employee.
func (e *Employee) Save(ctx context.Context) (map[string]any, error) {
	if e.client == nil {
		return nil, ErrUnbound
	}
	return e.client.Employees.Save(ctx, e)
}

// Register assigns a registration reference to the employee.
func (e *Employee) Register(ctx context.Context, registration any) error {
	if e.client == nil {
		return ErrUnbound
	}
	return e.client.Employees.Register(ctx, e.technicalID(), registration)
}

// Unregister deletes one of the employee's registration references.
// registration needs organization_code and registration_number.
func (e *Employee) Unregister(ctx context.Context, registration any) error {
	if e.client == nil {
		return ErrUnbound
	}
	ref, err := RegistrationReferenceType.From(registration)
	if err != nil {
		return err
	}
	org, _ := ref.Get("organization_code").(string)
	number, _ := ref.Get("registration_number").(string)
	return e.client.Employees.Unregister(ctx, e.technicalID(), org, number)
}

// Leave reports the employee's departure.
func (e *Employee) Leave(ctx context.Context) error {
	if e.client == nil {
		return ErrUnbound
	}
	return e.client.Employees.Leave(ctx, e.technicalID())
}

// Returns reports the employee's return.
func (e *Employee) Returns(ctx context.Context) error {
	if e.client == nil {
		return ErrUnbound
	}
	return e.client.Employees.Returns(ctx, e.technicalID())
}

func (e *Employee) technicalID() string {
	id, _ := e.Get("technical_id").(string)
	return id
}

// Employees groups the employee endpoints.
type Employees struct {
	c *Client
}

// New builds an Employee from raw input (map, struct or model).
func (s *Employees) New(raw any) (*Employee, error) {
	m, err := EmployeeType.From(raw)
	if err != nil {
		return nil, err
	}
	return &Employee{Model: m, client: s.c}, nil
}

// Save creates or updates an employee and returns the API response body.
// Mandatory fields are checked before anything is sent.
func (s *Employees) Save(ctx context.Context, e *Employee) (map[string]any, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid employee: %w", err)
	}

	resp, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "employees/",
		JSON:   e.Model,
	})
	if err != nil {
		return nil, err
	}
	s.c.log.Debug("employee saved", "technical_id", e.technicalID())
	return decodeBody(resp)
}

// FindByID returns the employee with the given technical id, or nil when
// there is none.
func (s *Employees) FindByID(ctx context.Context, technicalID string) (*Employee, error) {
	if err := requireID("employee", technicalID); err != nil {
		return nil, err
	}

	resp, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   "employees/" + url.PathEscape(technicalID) + "/",
		Accept: accept404(),
	})
	if err != nil {
		return nil, err
	}
	if notFound(resp) {
		return nil, nil
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	return s.New(body)
}

// Register assigns a registration reference (organization code and
// registration number) to an employee.
func (s *Employees) Register(ctx context.Context, technicalID string, registration any) error {
	if err := requireID("employee", technicalID); err != nil {
		return err
	}

	ref, err := RegistrationReferenceType.From(registration)
	if err != nil {
		return err
	}
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("invalid registration reference: %w", err)
	}

	_, err = s.c.send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "employees/" + url.PathEscape(technicalID) + "/registrations/",
		JSON:   ref,
	})
	return err
}

// Unregister deletes a registration reference from an employee.
func (s *Employees) Unregister(ctx context.Context, technicalID, organizationCode, registrationNumber string) error {
	if err := requireID("employee", technicalID); err != nil {
		return err
	}
	if organizationCode == "" || registrationNumber == "" {
		return fmt.Errorf("organization code and registration number are required")
	}

	_, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodDelete,
		Path: "employees/" + url.PathEscape(technicalID) + "/registrations/" +
			url.PathEscape(organizationCode) + "/" + url.PathEscape(registrationNumber),
	})
	return err
}

// Leave reports an employee's departure.
func (s *Employees) Leave(ctx context.Context, technicalID string) error {
	return s.transition(ctx, technicalID, "gone")
}

// Returns reports an employee's return.
func (s *Employees) Returns(ctx context.Context, technicalID string) error {
	return s.transition(ctx, technicalID, "back")
}

func (s *Employees) transition(ctx context.Context, technicalID, action string) error {
	if err := requireID("employee", technicalID); err != nil {
		return err
	}

	_, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodPut,
		Path:   "employees/" + url.PathEscape(technicalID) + "/" + action + "/",
	})
	if err == nil {
		s.c.log.Debug("employee state changed", "technical_id", technicalID, "action", action)
	}
	return err
}
