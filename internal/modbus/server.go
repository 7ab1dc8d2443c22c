package modbus

import (
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// Server exposes a RegisterStore over Modbus TCP. Values are served as input
// registers; holding register reads return the same data for clients that
// only speak function code 3.
type Server struct {
	server *modbus.ModbusServer
	store  *RegisterStore
	logger *zap.Logger
}

func NewServer(url string, maxClients uint, store *RegisterStore, logger *zap.Logger) (*Server, error) {
	s := &Server{
		store:  store,
		logger: logger.With(zap.String("component", "modbus")),
	}
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        url,
		Timeout:    30 * time.Second,
		MaxClients: maxClients,
	}, &registerHandler{store: store, logger: s.logger})
	if err != nil {
		return nil, err
	}
	s.server = server
	return s, nil
}

func (s *Server) Start() error {
	s.logger.Info("modbus server starting")
	return s.server.Start()
}

func (s *Server) Stop() error {
	return s.server.Stop()
}

type registerHandler struct {
	store  *RegisterStore
	logger *zap.Logger
}

func (h *registerHandler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *registerHandler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *registerHandler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.IsWrite {
		h.logger.Debug("rejecting register write", zap.String("client", req.ClientAddr), zap.Uint16("addr", req.Addr))
		return nil, modbus.ErrIllegalFunction
	}
	return h.read(req.Addr, req.Quantity)
}

func (h *registerHandler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return h.read(req.Addr, req.Quantity)
}

func (h *registerHandler) read(addr, quantity uint16) ([]uint16, error) {
	regs, ok := h.store.Read(addr, quantity)
	if !ok {
		return nil, modbus.ErrIllegalDataAddress
	}
	return regs, nil
}
