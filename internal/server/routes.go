package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type errorResponse struct {
	Error string `json:"error"`
}

type writeChannelBody struct {
	Value *float64 `json:"value"`
}

type masterStateResponse struct {
	State string `json:"state"`
	Index int32  `json:"index"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.GET("/drivers", s.DriversHandler)
	api.GET("/state", s.MasterStateHandler)
	api.GET("/devices", s.DevicesHandler)
	api.GET("/devices/:serial/channels", s.ChannelsHandler)
	api.GET("/devices/:serial/channels/:name", s.ChannelValueHandler)
	api.PUT("/devices/:serial/channels/:name", s.WriteChannelHandler)
	api.POST("/detection", s.DetectionHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DriversHandler(c echo.Context) error {
	resp, err := request[domain.GetDriversResponse](s, domain.GetDriversRequest{}, s.requestTimeout)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp.Drivers)
}

func (s *Server) MasterStateHandler(c echo.Context) error {
	resp, err := request[domain.GetMasterStateResponse](s, domain.GetMasterStateRequest{}, s.requestTimeout)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, masterStateResponse{
		State: resp.State.String(),
		Index: int32(resp.State),
	})
}

func (s *Server) DevicesHandler(c echo.Context) error {
	withChannels := c.QueryParam("channels") == "true"
	resp, err := request[domain.GetDevicesResponse](s, domain.GetDevicesRequest{WithChannels: withChannels}, s.requestTimeout)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp.Devices)
}

func (s *Server) ChannelsHandler(c echo.Context) error {
	serial, err := serialParam(c)
	if err != nil {
		return errorJSON(c, err)
	}
	group, err := yasdi.ParseChannelGroup(c.QueryParam("group"))
	if err != nil {
		return errorJSON(c, err)
	}
	resp, err := request[domain.GetChannelsResponse](s, domain.GetChannelsRequest{
		Serial: serial,
		Group:  group,
	}, s.requestTimeout)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp.Channels)
}

func (s *Server) ChannelValueHandler(c echo.Context) error {
	serial, err := serialParam(c)
	if err != nil {
		return errorJSON(c, err)
	}
	var maxAge uint32
	if raw := c.QueryParam("max_age"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return errorJSON(c, errBadRequest("max_age must be a number of seconds"))
		}
		maxAge = uint32(v)
	}
	resp, err := request[domain.GetChannelValuesResponse](s, domain.GetChannelValuesRequest{
		Serial:   serial,
		Channels: []string{c.Param("name")},
		MaxAge:   maxAge,
	}, s.requestTimeout)
	if err != nil {
		return errorJSON(c, err)
	}
	if len(resp.Values) != 1 {
		return errorJSON(c, domain.ErrChannelNotFound)
	}
	value := resp.Values[0]
	if !value.Valid() {
		// unresolved names carry no group
		if value.Group == "" {
			return errorJSON(c, domain.ErrChannelNotFound)
		}
		return c.JSON(http.StatusBadGateway, value)
	}
	return c.JSON(http.StatusOK, value)
}

func (s *Server) WriteChannelHandler(c echo.Context) error {
	serial, err := serialParam(c)
	if err != nil {
		return errorJSON(c, err)
	}
	var body writeChannelBody
	if err := c.Bind(&body); err != nil || body.Value == nil {
		return errorJSON(c, errBadRequest(`body must be {"value": <number>}`))
	}
	resp, err := request[domain.WriteChannelResponse](s, domain.WriteChannelRequest{
		Serial:  serial,
		Channel: c.Param("name"),
		Value:   *body.Value,
	}, s.requestTimeout)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp.Value)
}

func (s *Server) DetectionHandler(c echo.Context) error {
	var minCount uint32
	if raw := c.QueryParam("min"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return errorJSON(c, errBadRequest("min must be a positive number"))
		}
		minCount = uint32(v)
	}
	resp, err := request[domain.DetectDevicesResponse](s, domain.DetectDevicesRequest{MinCount: minCount}, s.detectionTimeout)
	if err != nil {
		if errors.Is(err, yasdi.YE_NOT_ALL_DEVS_FOUND) {
			// partial result is still useful
			return c.JSON(http.StatusPartialContent, resp.Devices)
		}
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp.Devices)
}

// request asks the master actor and unwraps the response error. The response
// is returned even when it carries an error.
func request[R domain.ActorResponse](s *Server, req any, timeout time.Duration) (R, error) {
	var zero R
	res, err := s.rootContext.RequestFuture(s.masterActor, req, timeout).Result()
	if err != nil {
		return zero, err
	}
	resp, ok := res.(R)
	if !ok {
		return zero, errors.New("unexpected response")
	}
	return resp, resp.GetResponseError()
}

type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string {
	return e.msg
}

func errBadRequest(msg string) error {
	return badRequestError{msg: msg}
}

func serialParam(c echo.Context) (uint32, error) {
	serial, err := strconv.ParseUint(c.Param("serial"), 10, 32)
	if err != nil {
		return 0, errBadRequest("serial must be a number")
	}
	return uint32(serial), nil
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(statusForError(err), errorResponse{Error: err.Error()})
}

func statusForError(err error) int {
	var badRequest badRequestError
	switch {
	case errors.As(err, &badRequest), errors.Is(err, yasdi.ErrInvalidGroup), errors.Is(err, yasdi.ErrNotEncodable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDeviceNotFound), errors.Is(err, domain.ErrChannelNotFound), errors.Is(err, yasdi.ErrChannelNotFound):
		return http.StatusNotFound
	case errors.Is(err, actor.ErrTimeout):
		return http.StatusServiceUnavailable
	}
	code, ok := yasdi.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case yasdi.YE_VALUE_NOT_VALID, yasdi.YE_INVAL_ARGUMENT, yasdi.YE_CHAN_TYPE_MISMATCH, yasdi.YE_NO_ACCESS_RIGHTS:
		return http.StatusBadRequest
	case yasdi.YE_DEV_DETECT_IN_PROGRESS:
		return http.StatusConflict
	case yasdi.YE_TIMEOUT:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
