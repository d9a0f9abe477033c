package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.uber.org/zap"
)

var (
	// ErrPairingTimeout is returned when no QR code was scanned in time.
	ErrPairingTimeout = errors.New("pairing timed out")
	// ErrPairingFailed is returned when the server rejects the pairing attempt.
	ErrPairingFailed = errors.New("pairing failed")
)

// consumeQR renders every pairing code to w until the device is paired.
func consumeQR(ctx context.Context, ch <-chan whatsmeow.QRChannelItem, w io.Writer, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-ch:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}

				return fmt.Errorf("%w: pairing channel closed", ErrPairingFailed)
			}

			switch item.Event {
			case whatsmeow.QRChannelEventCode:
				fmt.Fprintln(w, "Scan this QR code with WhatsApp (Linked devices):")
				qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, w)
				logger.Info("Pairing code issued", zap.Duration("expiresIn", item.Timeout))
			case whatsmeow.QRChannelSuccess.Event:
				logger.Info("Device paired")
				return nil
			case whatsmeow.QRChannelTimeout.Event:
				return ErrPairingTimeout
			case whatsmeow.QRChannelEventError:
				return fmt.Errorf("%w: %w", ErrPairingFailed, item.Error)
			default:
				return fmt.Errorf("%w: %s", ErrPairingFailed, item.Event)
			}
		}
	}
}
