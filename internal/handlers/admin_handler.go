package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/services"
)

type fieldUpdate struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

type statusUpdate struct {
	Status string `json:"status"`
}

func AdminListBookings(a *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := pageParams(c)
		bookings, total, err := a.ListBookings(c.Request.Context(), c.Query("status"), page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(bookings, page, limit, total))
	}
}

func AdminGetBooking(a *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, err := a.GetBooking(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, ""))
	}
}

// AdminUpdateBookingField applies a single inline edit from the bookings table.
func AdminUpdateBookingField(a *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fieldUpdate
		if !bindJSON(c, &req) {
			return
		}
		booking, err := a.UpdateBookingField(c.Request.Context(), c.Param("id"), req.Field, req.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking updated"))
	}
}

func AdminUpdateBookingStatus(a *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusUpdate
		if !bindJSON(c, &req) {
			return
		}
		booking, err := a.UpdateBookingStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Status updated"))
	}
}

func AdminAssignDriver(a *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DriverID string `json:"driver_id"`
		}
		if !bindJSON(c, &req) {
			return
		}
		booking, err := a.AssignDriver(c.Request.Context(), c.Param("id"), req.DriverID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Driver assigned"))
	}
}

func AdminDeleteBooking(a *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.DeleteBooking(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Booking deleted"))
	}
}

func AdminOverview(a *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := a.Overview(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(overview, ""))
	}
}

func AdminListFeedback(a *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		feedback, err := a.ListFeedback(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(feedback, ""))
	}
}

func AdminListDrivers(d *services.DriverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		drivers, err := d.ListDrivers(c.Request.Context(), c.Query("status"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(drivers, ""))
	}
}

func AdminGetDriver(d *services.DriverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		driver, err := d.GetDriver(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(driver, ""))
	}
}

func AdminCreateDriver(d *services.DriverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var driver models.Driver
		if !bindJSON(c, &driver) {
			return
		}
		created, err := d.CreateDriver(c.Request.Context(), &driver)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(created, "Driver created"))
	}
}

func AdminUpdateDriverField(d *services.DriverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fieldUpdate
		if !bindJSON(c, &req) {
			return
		}
		driver, err := d.UpdateDriverField(c.Request.Context(), c.Param("id"), req.Field, req.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(driver, "Driver updated"))
	}
}

func AdminUpdateDriverStatus(d *services.DriverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusUpdate
		if !bindJSON(c, &req) {
			return
		}
		driver, err := d.UpdateDriverStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(driver, "Driver status updated"))
	}
}

func AdminDeleteDriver(d *services.DriverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.DeleteDriver(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Driver deleted"))
	}
}

func GetPricing(s *services.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := s.GetSettings(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(settings, ""))
	}
}

func UpdatePricing(s *services.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var settings models.Settings
		if !bindJSON(c, &settings) {
			return
		}
		saved, err := s.UpdateSettings(c.Request.Context(), &settings)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(saved, "Pricing updated"))
	}
}
