package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
)

var editableDriverFields = map[string]string{
	"name":          "required,max=120",
	"email":         "omitempty,email",
	"phone":         "required,min=7,max=32",
	"vehicle.make":  "required",
	"vehicle.model": "required",
	"vehicle.year":  "gte=1990,lte=2100",
	"vehicle.color": "max=40",
	"vehicle.plate": "required,max=16",
}

type DriverService struct {
	drivers models.DriverRepo
	logger  *slog.Logger
}

func NewDriverService(drivers models.DriverRepo, logger *slog.Logger) *DriverService {
	return &DriverService{drivers: drivers, logger: logger}
}

func (d *DriverService) CreateDriver(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	driver.Name = strings.TrimSpace(driver.Name)
	driver.Email = strings.ToLower(strings.TrimSpace(driver.Email))
	driver.Vehicle.Plate = strings.ToUpper(strings.TrimSpace(driver.Vehicle.Plate))
	if driver.Status == "" {
		driver.Status = models.DriverAvailable
	}
	if !driver.Status.Valid() {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", driver.Status)}
	}
	if err := validateStruct(driver); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	driver.ID = uuid.New().String()
	driver.Rating = 0
	driver.RatingCount = 0
	driver.TotalRides = 0
	driver.CreatedAt = now
	driver.UpdatedAt = now

	created, err := d.drivers.CreateDriver(ctx, driver)
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not create the driver.", Err: err}
	}
	d.logger.InfoContext(ctx, "Driver created", "driver_id", created.ID)
	return created, nil
}

func (d *DriverService) ListDrivers(ctx context.Context, status string) ([]*models.Driver, error) {
	st := models.DriverStatus(status)
	if status != "" && !st.Valid() {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", status)}
	}
	drivers, err := d.drivers.ListDrivers(ctx, st)
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not load drivers.", Err: err}
	}
	return drivers, nil
}

func (d *DriverService) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	driver, err := d.drivers.GetDriverByID(ctx, id)
	if errors.Is(err, models.ErrDriverNotFound) {
		return nil, domain.NotFoundError{Resource: "driver", Err: err}
	}
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not load the driver.", Err: err}
	}
	return driver, nil
}

func (d *DriverService) UpdateDriverField(ctx context.Context, id, field string, value interface{}) (*models.Driver, error) {
	rule, ok := editableDriverFields[field]
	if !ok {
		return nil, domain.ValidationError{Field: field, Msg: fmt.Sprintf("%s cannot be edited", field)}
	}

	var v interface{}
	if field == "vehicle.year" {
		n, ok := value.(float64)
		if !ok || n != float64(int(n)) {
			return nil, domain.ValidationError{Field: field, Msg: "vehicle.year must be a whole number"}
		}
		v = int(n)
	} else {
		s, ok := value.(string)
		if !ok {
			return nil, domain.ValidationError{Field: field, Msg: fmt.Sprintf("%s must be a string", field)}
		}
		v = strings.TrimSpace(s)
	}
	if err := models.Validate.Var(v, rule); err != nil {
		return nil, domain.ValidationError{Field: field, Msg: fmt.Sprintf("%s is invalid", field), Err: err}
	}

	return d.update(ctx, id, map[string]interface{}{field: v})
}

func (d *DriverService) UpdateDriverStatus(ctx context.Context, id, status string) (*models.Driver, error) {
	st := models.DriverStatus(status)
	if !st.Valid() {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", status)}
	}
	return d.update(ctx, id, map[string]interface{}{"status": st})
}

func (d *DriverService) update(ctx context.Context, id string, fields map[string]interface{}) (*models.Driver, error) {
	updated, err := d.drivers.UpdateDriver(ctx, id, fields)
	if errors.Is(err, models.ErrDriverNotFound) {
		return nil, domain.NotFoundError{Resource: "driver", Err: err}
	}
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not update the driver.", Err: err}
	}
	return updated, nil
}

func (d *DriverService) DeleteDriver(ctx context.Context, id string) error {
	err := d.drivers.DeleteDriver(ctx, id)
	if errors.Is(err, models.ErrDriverNotFound) {
		return domain.NotFoundError{Resource: "driver", Err: err}
	}
	if err != nil {
		return domain.UpstreamError{Msg: "Could not delete the driver.", Err: err}
	}
	d.logger.InfoContext(ctx, "Driver deleted", "driver_id", id)
	return nil
}
