package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type itemDocument struct {
	ProductID string               `bson:"product_id"`
	Title     string               `bson:"title"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"qty"`
	Image     string               `bson:"image,omitempty"`
	SellerID  string               `bson:"seller_id,omitempty"`
}

type addressDocument struct {
	HouseNo              string   `bson:"house_no,omitempty"`
	FloorNo              string   `bson:"floor_no,omitempty"`
	BlockNo              string   `bson:"block_no,omitempty"`
	BuildingName         string   `bson:"building_name,omitempty"`
	Area                 string   `bson:"area,omitempty"`
	Landmark             string   `bson:"landmark,omitempty"`
	Country              string   `bson:"country,omitempty"`
	DeliveryInstructions string   `bson:"delivery_instructions,omitempty"`
	IsDefaultAddress     bool     `bson:"is_default_address"`
	Pincode              string   `bson:"pincode,omitempty"`
	City                 string   `bson:"city,omitempty"`
	State                string   `bson:"state,omitempty"`
	Lat                  *float64 `bson:"lat,omitempty"`
	Lng                  *float64 `bson:"lng,omitempty"`
	Source               string   `bson:"source,omitempty"`
	UpdatedAt            int64    `bson:"updated_at,omitempty"`
}

type orderDocument struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"user_id"`
	Status          string               `bson:"status"`
	Items           []itemDocument       `bson:"items"`
	TotalQty        int                  `bson:"total_qty"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount"`
	DeliveryAddress *addressDocument     `bson:"delivery_address"`
	CreatedAt       time.Time            `bson:"created_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("orders"),
	}
}

func (m *MongoRepository) WriteOrder(ctx context.Context, order *domain.Order) error {
	doc, err := toDocument(order)
	if err != nil {
		return err
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *MongoRepository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var doc orderDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return fromDocument(doc)
}

func (m *MongoRepository) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert decimal128 %s: %w", v, err)
	}
	return d, nil
}

func toDocument(order *domain.Order) (*orderDocument, error) {
	total, err := toDecimal128(order.TotalAmount)
	if err != nil {
		return nil, err
	}
	items := make([]itemDocument, len(order.Items))
	for i, item := range order.Items {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return nil, err
		}
		items[i] = itemDocument{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     price,
			Quantity:  item.Quantity,
			Image:     item.Image,
			SellerID:  item.SellerID,
		}
	}

	var addr *addressDocument
	if loc := order.DeliveryAddress; loc != nil {
		addr = &addressDocument{
			HouseNo:              loc.HouseNo,
			FloorNo:              loc.FloorNo,
			BlockNo:              loc.BlockNo,
			BuildingName:         loc.BuildingName,
			Area:                 loc.Area,
			Landmark:             loc.Landmark,
			Country:              loc.Country,
			DeliveryInstructions: loc.DeliveryInstructions,
			IsDefaultAddress:     loc.IsDefaultAddress,
			Pincode:              loc.Pincode,
			City:                 loc.City,
			State:                loc.State,
			Lat:                  loc.Lat,
			Lng:                  loc.Lng,
			Source:               string(loc.Source),
			UpdatedAt:            loc.UpdatedAt,
		}
	}

	return &orderDocument{
		ID:              order.ID.String(),
		UserID:          order.UserID,
		Status:          string(order.Status),
		Items:           items,
		TotalQty:        order.TotalQty,
		TotalAmount:     total,
		DeliveryAddress: addr,
		CreatedAt:       order.CreatedAt,
	}, nil
}

func fromDocument(doc orderDocument) (*domain.Order, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", doc.ID, err)
	}
	total, err := fromDecimal128(doc.TotalAmount)
	if err != nil {
		return nil, err
	}
	items := make([]domain.LineItem, len(doc.Items))
	for i, item := range doc.Items {
		price, err := fromDecimal128(item.Price)
		if err != nil {
			return nil, err
		}
		items[i] = domain.LineItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     price,
			Quantity:  item.Quantity,
			Image:     item.Image,
			SellerID:  item.SellerID,
		}
	}

	var loc *domain.Location
	if a := doc.DeliveryAddress; a != nil {
		loc = &domain.Location{
			HouseNo:              a.HouseNo,
			FloorNo:              a.FloorNo,
			BlockNo:              a.BlockNo,
			BuildingName:         a.BuildingName,
			Area:                 a.Area,
			Landmark:             a.Landmark,
			Country:              a.Country,
			DeliveryInstructions: a.DeliveryInstructions,
			IsDefaultAddress:     a.IsDefaultAddress,
			Pincode:              a.Pincode,
			City:                 a.City,
			State:                a.State,
			Lat:                  a.Lat,
			Lng:                  a.Lng,
			Source:               domain.LocationSource(a.Source),
			UpdatedAt:            a.UpdatedAt,
		}
	}

	return &domain.Order{
		ID:              id,
		UserID:          doc.UserID,
		Status:          domain.OrderStatus(doc.Status),
		Items:           items,
		TotalQty:        doc.TotalQty,
		TotalAmount:     total,
		DeliveryAddress: loc,
		CreatedAt:       doc.CreatedAt,
	}, nil
}
