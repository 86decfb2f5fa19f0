package domain

import "context"

// ClientRepository описывает требования к хранилищу клиентов.
type ClientRepository interface {
	// Get возвращает клиента или ErrClientNotFound.
	Get(ctx context.Context, id int64) (Client, error)
	// List возвращает клиентов по фильтру в порядке возрастания ID.
	List(ctx context.Context, filter ClientFilter) ([]Client, error)
	Count(ctx context.Context, filter ClientFilter) (int, error)
	// ExistsByDocument проверяет занятость документа. excludeID == 0 означает поиск без исключений.
	ExistsByDocument(ctx context.Context, documentNumber string, excludeID int64) (bool, error)
	// ExistsByName проверяет пару имя/фамилия без учёта регистра.
	ExistsByName(ctx context.Context, firstName, lastName string, excludeID int64) (bool, error)
	// Save вставляет клиента (ID == 0, ID присваивается) или обновляет существующего.
	Save(ctx context.Context, client *Client) error
	// Delete удаляет клиента или возвращает ErrClientNotFound.
	Delete(ctx context.Context, id int64) error
}

// ProductRepository описывает требования к каталогу товаров.
type ProductRepository interface {
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	Count(ctx context.Context, filter ProductFilter) (int, error)
	// ExistsByName проверяет название без учёта регистра.
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	Save(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	Count(ctx context.Context, filter OrderFilter) (int, error)
	Save(ctx context.Context, order *Order) error
	// Delete возвращает ErrOrderNotFound, если заказа нет.
	Delete(ctx context.Context, id int64) error
}
