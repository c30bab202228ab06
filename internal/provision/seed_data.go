package provision

import "github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"

var sampleBooks = []domain.BookInput{
	{Title: "Dom Casmurro", Author: "Machado de Assis", Year: 1899, Category: "Romance"},
	{Title: "O Cortiço", Author: "Aluísio Azevedo", Year: 1890, Category: "Romance"},
	{Title: "1984", Author: "George Orwell", Year: 1949, Category: "Ficção Científica"},
	{Title: "O Pequeno Príncipe", Author: "Antoine de Saint-Exupéry", Year: 1943, Category: "Infantil"},
	{Title: "Cem Anos de Solidão", Author: "Gabriel García Márquez", Year: 1967, Category: "Romance"},
	{Title: "O Alquimista", Author: "Paulo Coelho", Year: 1988, Category: "Filosofia"},
	{Title: "Harry Potter e a Pedra Filosofal", Author: "J.K. Rowling", Year: 1997, Category: "Fantasia"},
	{Title: "O Senhor dos Anéis", Author: "J.R.R. Tolkien", Year: 1954, Category: "Fantasia"},
	{Title: "Código Limpo", Author: "Robert C. Martin", Year: 2008, Category: "Tecnologia"},
	{Title: "Python Fluente", Author: "Luciano Ramalho", Year: 2015, Category: "Tecnologia"},
	{Title: "A Arte da Guerra", Author: "Sun Tzu", Year: -500, Category: "Filosofia"},
	{Title: "Sapiens", Author: "Yuval Noah Harari", Year: 2011, Category: "História"},
	{Title: "O Gene Egoísta", Author: "Richard Dawkins", Year: 1976, Category: "Ciência"},
	{Title: "Uma Breve História do Tempo", Author: "Stephen Hawking", Year: 1988, Category: "Ciência"},
	{Title: "O Poder do Hábito", Author: "Charles Duhigg", Year: 2012, Category: "Autoajuda"},
	{Title: "Mindset", Author: "Carol S. Dweck", Year: 2006, Category: "Psicologia"},
	{Title: "A Origem das Espécies", Author: "Charles Darwin", Year: 1859, Category: "Ciência"},
	{Title: "Orgulho e Preconceito", Author: "Jane Austen", Year: 1813, Category: "Romance"},
	{Title: "Crime e Castigo", Author: "Fiódor Dostoiévski", Year: 1866, Category: "Romance"},
	{Title: "O Hobbit", Author: "J.R.R. Tolkien", Year: 1937, Category: "Fantasia"},
}

var sampleUsers = []domain.UserInput{
	{Name: "Ana Silva", Email: "ana.silva@email.com", Phone: "(11) 98765-4321"},
	{Name: "João Santos", Email: "joao.santos@email.com", Phone: "(11) 99876-5432"},
	{Name: "Maria Oliveira", Email: "maria.oliveira@email.com", Phone: "(11) 98765-1234"},
	{Name: "Pedro Costa", Email: "pedro.costa@email.com", Phone: "(11) 97654-3210"},
	{Name: "Carla Ferreira", Email: "carla.ferreira@email.com", Phone: "(11) 96543-2109"},
	{Name: "Lucas Almeida", Email: "lucas.almeida@email.com", Phone: "(11) 95432-1098"},
	{Name: "Julia Rodrigues", Email: "julia.rodrigues@email.com", Phone: "(11) 94321-0987"},
	{Name: "Rafael Martins", Email: "rafael.martins@email.com", Phone: "(11) 93210-9876"},
	{Name: "Fernanda Lima", Email: "fernanda.lima@email.com", Phone: "(11) 92109-8765"},
	{Name: "Diego Pereira", Email: "diego.pereira@email.com", Phone: "(11) 91098-7654"},
}

const (
	activeSampleLoans   = 5
	returnedSampleLoans = 8
)
