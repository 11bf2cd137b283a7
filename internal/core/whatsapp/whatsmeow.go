package whatsapp

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image/png"
	"log"
	"time"

	_ "github.com/lib/pq"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

type WhatsmeowProvider struct {
	client   *whatsmeow.Client
	storeURL string
}

func NewWhatsmeowProvider(storeURL string) *WhatsmeowProvider {
	return &WhatsmeowProvider{storeURL: storeURL}
}

func (w *WhatsmeowProvider) Name() string {
	return "Whatsmeow"
}

func (w *WhatsmeowProvider) initStore() (*sqlstore.Container, error) {
	ctx := context.Background()
	dbLog := waLog.Stdout("Database", "ERROR", true)

	if w.storeURL != "" {
		log.Println("🌐 Using PostgreSQL database for WhatsApp store")
		container, err := sqlstore.New(ctx, "postgres", w.storeURL, dbLog)
		if err != nil {
			return nil, fmt.Errorf("failed to init PostgreSQL store: %w", err)
		}
		if err := container.Upgrade(ctx); err != nil {
			return nil, fmt.Errorf("failed to upgrade PostgreSQL schema: %w", err)
		}
		return container, nil
	}

	log.Println("💾 Using local SQLite store (store.db)")
	rawDB, err := sql.Open("sqlite", "file:store.db?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if _, err = rawDB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Printf("⚠️ Failed to enable foreign_keys pragma: %v", err)
	}

	container := sqlstore.NewWithDB(rawDB, "sqlite", dbLog)
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("failed to upgrade SQLite schema: %w", err)
	}
	return container, nil
}

func (w *WhatsmeowProvider) Connect() error {
	container, err := w.initStore()
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	clientLog := waLog.Stdout("Client", "INFO", true)
	w.client = whatsmeow.NewClient(deviceStore, clientLog)

	if w.client.Store.ID == nil {
		qrChan, _ := w.client.GetQRChannel(context.Background())
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		for evt := range qrChan {
			switch evt.Event {
			case "code":
				fmt.Println("🔗 Scan this QR in WhatsApp:", evt.Code)
				if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 256, "whatsapp-qr.png"); err != nil {
					log.Printf("Failed to generate QR image: %v", err)
				} else {
					fmt.Println("🖼️ QR code saved to whatsapp-qr.png")
				}
			case "success":
				fmt.Println("✅ WhatsApp login successful!")
				return nil
			case "timeout":
				return fmt.Errorf("QR code timeout")
			}
		}
		return nil
	}

	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}
	fmt.Println("✅ Reconnected to WhatsApp.")
	return nil
}

func (w *WhatsmeowProvider) Disconnect() {
	if w.client != nil {
		w.client.Disconnect()
		log.Println("🔌 Whatsmeow client disconnected")
	}
}

func (w *WhatsmeowProvider) SendText(ctx context.Context, phoneNumber, message string) error {
	if w.client == nil {
		return fmt.Errorf("client not initialized")
	}

	jid := types.NewJID(phoneNumber, "s.whatsapp.net")
	msg := &waProto.Message{
		Conversation: proto.String(message),
	}

	_, err := w.client.SendMessage(ctx, jid, msg)
	return err
}

func (w *WhatsmeowProvider) OnEvent(handler func(evt interface{})) error {
	if w.client == nil {
		return fmt.Errorf("client not initialized")
	}
	w.client.AddEventHandler(handler)
	return nil
}

// GenerateQR pairs a fresh device and returns the QR PNG. The temporary
// client stays connected a few minutes so the scan can complete.
func (w *WhatsmeowProvider) GenerateQR() ([]byte, error) {
	container, err := w.initStore()
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))
	qrChan, _ := client.GetQRChannel(context.Background())

	go func() {
		_ = client.Connect()
	}()

	for evt := range qrChan {
		if evt.Event == "code" {
			var buf bytes.Buffer
			img, err := qrcode.New(evt.Code, qrcode.Medium)
			if err != nil {
				client.Disconnect()
				return nil, fmt.Errorf("failed to generate QR: %w", err)
			}
			if err := png.Encode(&buf, img.Image(256)); err != nil {
				client.Disconnect()
				return nil, fmt.Errorf("failed to encode QR png: %w", err)
			}

			go func(cli *whatsmeow.Client) {
				time.Sleep(5 * time.Minute)
				cli.Disconnect()
			}(client)

			return buf.Bytes(), nil
		} else if evt.Event == "timeout" || evt.Event == "error" {
			client.Disconnect()
			return nil, fmt.Errorf("QR generation failed: %s", evt.Event)
		}
	}
	return nil, fmt.Errorf("no QR generated")
}

func (w *WhatsmeowProvider) IsConnected() bool {
	return w.client != nil && w.client.IsConnected()
}

// PairedNumber returns the phone number of the logged-in device, or ""
// before pairing completes.
func (w *WhatsmeowProvider) PairedNumber() string {
	if w.client == nil || w.client.Store.ID == nil {
		return ""
	}
	return w.client.Store.ID.User
}

func (w *WhatsmeowProvider) StartKeepAlive(ctx context.Context) {
	if w.client == nil {
		return
	}

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	log.Println("🔄 Keep-alive started (ping every 60s)")

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Keep-alive stopped")
			return
		case <-ticker.C:
			if w.client != nil && w.client.IsConnected() {
				if err := w.client.SendPresence(ctx, types.PresenceAvailable); err != nil {
					log.Printf("⚠️ Keep-alive ping failed: %v", err)
				}
			}
		}
	}
}

func (w *WhatsmeowProvider) StartTyping(phoneNumber string) error {
	if w.client == nil || !w.client.IsConnected() {
		return fmt.Errorf("whatsmeow client not connected")
	}
	jid, err := types.ParseJID(phoneNumber + "@s.whatsapp.net")
	if err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}
	return w.client.SendChatPresence(context.Background(), jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
}

func (w *WhatsmeowProvider) StopTyping(phoneNumber string) error {
	if w.client == nil || !w.client.IsConnected() {
		return fmt.Errorf("whatsmeow client not connected")
	}
	jid, err := types.ParseJID(phoneNumber + "@s.whatsapp.net")
	if err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}
	return w.client.SendChatPresence(context.Background(), jid, types.ChatPresencePaused, types.ChatPresenceMediaText)
}
